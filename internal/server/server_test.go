package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecocarbon/ecocarbon/internal/ledger"
	"github.com/ecocarbon/ecocarbon/internal/pipeline"
	"github.com/ecocarbon/ecocarbon/internal/sensor"
)

type fixedSensor struct {
	quality float64
}

func (f fixedSensor) Read(batchID string) sensor.Reading {
	return sensor.Reading{BatchID: batchID, QualityScore: f.quality, GPS: "-6.1000, -76.2000"}
}

func newTestServer(t *testing.T, quality float64, opts ...Option) (*httptest.Server, *pipeline.Pipeline) {
	t.Helper()
	p := pipeline.New(ledger.New(), pipeline.WithSensor(fixedSensor{quality: quality}))
	h, err := New(p, opts...).Handler()
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, p
}

func postProcess(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	res, err := http.Post(srv.URL+"/api/process", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestProcessEndpoint(t *testing.T) {
	t.Run("mints and returns the record", func(t *testing.T) {
		srv, p := newTestServer(t, 92)

		res := postProcess(t, srv, `{"farmer":"farmer_001","waste_kg":"5000","batch_id":"demo_batch_001"}`)
		require.Equal(t, http.StatusOK, res.StatusCode)

		var rec pipeline.ProcessingRecord
		require.NoError(t, json.NewDecoder(res.Body).Decode(&rec))
		assert.Equal(t, "demo_batch_001", rec.BatchID)
		assert.True(t, rec.TokensMinted.Equal(decimal.RequireFromString("12.696")))
		assert.True(t, p.Ledger().Balance("farmer_001").Equal(decimal.RequireFromString("12.696")))
	})

	t.Run("business failures are unprocessable", func(t *testing.T) {
		srv, p := newTestServer(t, 70)

		res := postProcess(t, srv, `{"farmer":"farmer_001","waste_kg":1000}`)
		require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

		var e errorResponse
		require.NoError(t, json.NewDecoder(res.Body).Decode(&e))
		assert.Equal(t, "quality", e.Kind)
		assert.Empty(t, p.History())
	})

	t.Run("duplicate batch ids are unprocessable", func(t *testing.T) {
		srv, _ := newTestServer(t, 90)

		res := postProcess(t, srv, `{"farmer":"farmer_001","waste_kg":"10","batch_id":"b1"}`)
		require.Equal(t, http.StatusOK, res.StatusCode)

		res = postProcess(t, srv, `{"farmer":"farmer_001","waste_kg":"10","batch_id":"b1"}`)
		require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
		var e errorResponse
		require.NoError(t, json.NewDecoder(res.Body).Decode(&e))
		assert.Equal(t, "duplicate_batch", e.Kind)
	})

	t.Run("contract violations are bad requests", func(t *testing.T) {
		srv, _ := newTestServer(t, 90)

		res := postProcess(t, srv, `{"farmer":"farmer_001","waste_kg":"-4"}`)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)

		res = postProcess(t, srv, `not json`)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("serializes concurrent callers", func(t *testing.T) {
		srv, p := newTestServer(t, 90)

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := http.Post(srv.URL+"/api/process", "application/json",
					strings.NewReader(`{"farmer":"farmer_003","waste_kg":"100"}`))
				if err == nil {
					res.Body.Close()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, p.History(), 20)
		assert.True(t, p.Ledger().Balance("farmer_003").Equal(decimal.RequireFromString("5.0784")))
	})
}

func TestReadEndpoints(t *testing.T) {
	srv, p := newTestServer(t, 90)
	ctx := context.Background()
	for i, farmer := range []ledger.Address{"farmer_001", "farmer_002", "farmer_003"} {
		_, err := p.Process(ctx, farmer, decimal.NewFromInt(int64(1000*(i+1))), pipeline.WithBatchID(string(farmer)+"_b"))
		require.NoError(t, err)
	}

	t.Run("balances are ordered and limited", func(t *testing.T) {
		res, err := http.Get(srv.URL + "/api/balances?limit=2")
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var balances []ledger.AccountBalance
		require.NoError(t, json.NewDecoder(res.Body).Decode(&balances))
		require.Len(t, balances, 2)
		assert.Equal(t, ledger.Address("farmer_003"), balances[0].Address)
	})

	t.Run("rejects a bad limit", func(t *testing.T) {
		res, err := http.Get(srv.URL + "/api/balances?limit=-1")
		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("unseen address has zero balance", func(t *testing.T) {
		res, err := http.Get(srv.URL + "/api/balances/nobody")
		require.NoError(t, err)
		defer res.Body.Close()

		var bal ledger.AccountBalance
		require.NoError(t, json.NewDecoder(res.Body).Decode(&bal))
		assert.True(t, bal.Balance.IsZero())
	})

	t.Run("batch lookup", func(t *testing.T) {
		res, err := http.Get(srv.URL + "/api/batches/farmer_002_b")
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var batch batchResponse
		require.NoError(t, json.NewDecoder(res.Body).Decode(&batch))
		assert.Equal(t, "farmer_002_b", batch.BatchID)
		assert.True(t, batch.BiocharMass.Equal(decimal.NewFromInt(460)))
		assert.True(t, batch.ProvenanceVerified)
	})

	t.Run("unknown batch is not found", func(t *testing.T) {
		res, err := http.Get(srv.URL + "/api/batches/missing")
		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("history lists processed batches", func(t *testing.T) {
		res, err := http.Get(srv.URL + "/api/history")
		require.NoError(t, err)
		defer res.Body.Close()

		var history []pipeline.ProcessingRecord
		require.NoError(t, json.NewDecoder(res.Body).Decode(&history))
		assert.Len(t, history, 3)
	})

	t.Run("root banner", func(t *testing.T) {
		res, err := http.Get(srv.URL + "/")
		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})
}

func TestBatchProvenance(t *testing.T) {
	srv, p := newTestServer(t, 90)
	_, err := p.Ledger().Mint(context.Background(), ledger.MintRequest{
		Farmer:       "farmer_009",
		CarbonAmount: decimal.NewFromInt(1),
		BatchID:      "hand_minted",
		ContentHash:  "QmNotTheHashOfThisBatch",
		BiocharMass:  decimal.NewFromInt(100),
		QualityScore: 90,
	})
	require.NoError(t, err)

	res, err := http.Get(srv.URL + "/api/batches/hand_minted")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var batch batchResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&batch))
	assert.False(t, batch.ProvenanceVerified)
}

func TestRolesEndpoints(t *testing.T) {
	grant := func(t *testing.T, srv *httptest.Server, addr, body string) *http.Response {
		t.Helper()
		res, err := http.Post(srv.URL+"/api/accounts/"+addr+"/roles", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		t.Cleanup(func() { res.Body.Close() })
		return res
	}

	t.Run("lists the admin's roles by name", func(t *testing.T) {
		srv, _ := newTestServer(t, 90)

		res, err := http.Get(srv.URL + "/api/accounts/admin_address/roles")
		require.NoError(t, err)
		defer res.Body.Close()

		var body struct {
			Roles []string `json:"roles"`
		}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		assert.Equal(t, []string{"ADMIN", "MINTER", "VERIFIER", "RETIREMENT"}, body.Roles)
	})

	t.Run("unknown addresses hold no roles", func(t *testing.T) {
		srv, _ := newTestServer(t, 90)

		res, err := http.Get(srv.URL + "/api/accounts/nobody/roles")
		require.NoError(t, err)
		defer res.Body.Close()

		var body rolesResponse
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		assert.Empty(t, body.Roles)
	})

	t.Run("grants a named role idempotently", func(t *testing.T) {
		srv, p := newTestServer(t, 90)

		require.Equal(t, http.StatusOK, grant(t, srv, "buyer_1", `{"role":"BUYER"}`).StatusCode)
		require.Equal(t, http.StatusOK, grant(t, srv, "buyer_1", `{"role":"BUYER"}`).StatusCode)

		assert.Equal(t, []ledger.Role{ledger.RoleBuyer}, p.Ledger().Roles("buyer_1"))
	})

	t.Run("rejects unknown or missing roles", func(t *testing.T) {
		srv, p := newTestServer(t, 90)

		assert.Equal(t, http.StatusBadRequest, grant(t, srv, "x", `{"role":"OWNER"}`).StatusCode)
		assert.Equal(t, http.StatusBadRequest, grant(t, srv, "x", `{}`).StatusCode)
		assert.Empty(t, p.Ledger().Roles("x"))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("disabled without a token", func(t *testing.T) {
		srv, _ := newTestServer(t, 90)
		res, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("requires the bearer token", func(t *testing.T) {
		srv, _ := newTestServer(t, 90, WithMetricsEndpoint("s3cret"))

		res, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/metrics", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer s3cret")
		res, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})
}
