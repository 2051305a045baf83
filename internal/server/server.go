package server

import (
	"fmt"
	"net/http"

	logging "github.com/ipfs/go-log/v2"

	"github.com/ecocarbon/ecocarbon/internal/metrics"
	"github.com/ecocarbon/ecocarbon/internal/pipeline"
	"github.com/ecocarbon/ecocarbon/web"
)

var log = logging.Logger("server")

type config struct {
	metricsEndpointToken string
	adminUser            string
	adminPassword        string
}

type Option func(*config)

func WithMetricsEndpoint(authToken string) Option {
	return func(c *config) {
		c.metricsEndpointToken = authToken
	}
}

func WithAdminCreds(user, password string) Option {
	return func(c *config) {
		c.adminUser = user
		c.adminPassword = password
	}
}

type Server struct {
	cfg     *config
	backend *guardedPipeline
}

func New(p *pipeline.Pipeline, opts ...Option) *Server {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Server{cfg: cfg, backend: &guardedPipeline{p: p}}
}

// Handler builds the routing table.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.getRootHandler())

	// Set up admin endpoint with authentication (handles both GET and POST)
	adminHandler := web.BasicAuthMiddleware(web.AdminHandler(s.backend), s.cfg.adminUser, s.cfg.adminPassword)
	mux.HandleFunc("GET /admin", adminHandler)
	mux.HandleFunc("POST /admin", adminHandler)

	mux.HandleFunc("GET /api/balances", s.getBalancesHandler())
	mux.HandleFunc("GET /api/balances/{address}", s.getBalanceHandler())
	mux.HandleFunc("GET /api/batches/{id}", s.getBatchHandler())
	mux.HandleFunc("GET /api/accounts/{address}/roles", s.getRolesHandler())
	mux.HandleFunc("POST /api/accounts/{address}/roles", s.postRolesHandler())
	mux.HandleFunc("GET /api/history", s.getHistoryHandler())
	mux.HandleFunc("POST /api/process", s.postProcessHandler())

	if s.cfg.metricsEndpointToken != "" {
		if err := metrics.Init(); err != nil {
			return nil, fmt.Errorf("initializing metrics: %w", err)
		}

		mux.Handle("GET /metrics", s.getMetricsHandler())
	} else {
		log.Warnf("Metrics endpoint is disabled")
	}

	return mux, nil
}

func (s *Server) ListenAndServe(addr string) error {
	h, err := s.Handler()
	if err != nil {
		return err
	}

	log.Infof("Listening on %s", addr)
	return http.ListenAndServe(addr, h)
}
