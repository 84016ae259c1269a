// Package api exposes the thin HTTP surface over the dispatcher and the
// UTSF control plane: quote requests, per-vendor audit history, and
// Prometheus scraping (spec.md 2, 5).
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/pinggolf/freight-quote-core/internal/config"
	"github.com/pinggolf/freight-quote-core/internal/db"
	"github.com/pinggolf/freight-quote-core/internal/dispatcher"
	"github.com/pinggolf/freight-quote-core/internal/metrics"
	"github.com/pinggolf/freight-quote-core/internal/utsf"
)

// Server is the quote/audit HTTP API. It holds no session state: quote
// requests and audit reads are unauthenticated collaborators, not user
// sessions (spec.md's control-plane actors are operators, not signed-in
// end users).
type Server struct {
	config     *config.Config
	router     *mux.Router
	dispatcher *dispatcher.Dispatcher
	manager    *utsf.Manager
	auditMirror *db.Queries
	metrics    *metrics.Metrics
}

// NewServer wires a Server over its collaborators. auditMirror may be
// nil: the audit endpoint falls back to the UTSF file's own updates[]
// array when no database mirror is configured.
func NewServer(cfg *config.Config, d *dispatcher.Dispatcher, manager *utsf.Manager, auditMirror *db.Queries, m *metrics.Metrics) *Server {
	s := &Server{
		config:      cfg,
		router:      mux.NewRouter(),
		dispatcher:  d,
		manager:     manager,
		auditMirror: auditMirror,
		metrics:     m,
	}

	s.setupRoutes()
	return s
}

// Router returns the configured HTTP handler, wrapped in CORS.
func (s *Server) Router() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{s.config.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: s.config.CORSAllowCredentials,
		MaxAge:           300,
	})

	return c.Handler(s.router)
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/quotes", s.handleQuote).Methods("POST")
	api.HandleFunc("/utsf/{vendorID}/audit", s.handleVendorAudit).Methods("GET")

	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})).Methods("GET")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
