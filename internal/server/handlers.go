package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/ecocarbon/ecocarbon/internal/build"
	"github.com/ecocarbon/ecocarbon/internal/ledger"
	"github.com/ecocarbon/ecocarbon/internal/pipeline"
	"github.com/ecocarbon/ecocarbon/internal/provenance"
)

const defaultBalanceLimit = 5

func (s *Server) getRootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "🌱 ecocarbon %s\n", build.Version)
		fmt.Fprintf(w, "- %s (%s)\n", ledger.TokenName, ledger.TokenSymbol)
		fmt.Fprint(w, "- simulated ledger, state is not persisted\n")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("encoding response: %s", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var be ledger.BusinessError
	switch {
	case errors.As(err, &be):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: be.Error(), Kind: be.Kind()})
	case errors.Is(err, pipeline.ErrContractViolation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "contract_violation"})
	default:
		log.Errorf("handling request: %s", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) getBalancesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultBalanceLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
				return
			}
			limit = n
		}

		writeJSON(w, http.StatusOK, s.backend.TopBalances(limit))
	}
}

func (s *Server) getBalanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := ledger.Address(r.PathValue("address"))
		writeJSON(w, http.StatusOK, ledger.AccountBalance{Address: addr, Balance: s.backend.Balance(addr)})
	}
}

func (s *Server) getBatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batch, err := s.backend.Batch(r.PathValue("id"))
		if err != nil {
			var nf ledger.ErrBatchNotFound
			if errors.As(err, &nf) {
				writeJSON(w, http.StatusNotFound, errorResponse{Error: nf.Error(), Kind: nf.Kind()})
				return
			}
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, batchResponse{
			TokenBatch:         batch,
			ProvenanceVerified: provenance.Verify(batch.BatchID, batch.ContentHash),
		})
	}
}

type batchResponse struct {
	ledger.TokenBatch
	ProvenanceVerified bool `json:"provenance_verified"`
}

type rolesResponse struct {
	Address ledger.Address `json:"address"`
	Roles   []ledger.Role  `json:"roles"`
}

func (s *Server) getRolesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := ledger.Address(r.PathValue("address"))
		roles := s.backend.Roles(addr)
		if roles == nil {
			roles = []ledger.Role{}
		}
		writeJSON(w, http.StatusOK, rolesResponse{Address: addr, Roles: roles})
	}
}

type grantRequest struct {
	Role ledger.Role `json:"role"`
}

// postRolesHandler grants a role. Grants are unauthenticated, as on the ledger.
func (s *Server) postRolesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := ledger.Address(r.PathValue("address"))

		var req grantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %s", err)})
			return
		}
		if !req.Role.Valid() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "role is required"})
			return
		}

		s.backend.GrantRole(addr, req.Role)
		writeJSON(w, http.StatusOK, rolesResponse{Address: addr, Roles: s.backend.Roles(addr)})
	}
}

func (s *Server) getHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.backend.History())
	}
}

type processRequest struct {
	Farmer  ledger.Address  `json:"farmer"`
	WasteKg decimal.Decimal `json:"waste_kg"`
	BatchID string          `json:"batch_id,omitempty"`
}

func (s *Server) postProcessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req processRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %s", err)})
			return
		}

		rec, err := s.backend.process(r.Context(), req.Farmer, req.WasteKg, req.BatchID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) getMetricsHandler() http.Handler {
	next := promhttp.Handler()
	want := []byte("Bearer " + s.cfg.metricsEndpointToken)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
