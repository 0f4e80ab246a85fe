package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/crowdwant/pulse/internal/domain"
	"github.com/crowdwant/pulse/internal/insight"
	"github.com/crowdwant/pulse/internal/report"
	"github.com/crowdwant/pulse/internal/trends"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.Config, repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *insight.Engine, builder *report.Builder, trendsSvc *trends.Service, version string) *Server {
	handler := NewHandler(cfg.Engine, repo, cache, bus, engine, builder, trendsSvc, cfg.Cache.ReportTTL, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (tenant required)
	router.Route("/", func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Signal intake
		r.Post("/campaigns/{id}/signals/lobby", handler.RecordLobbySignal)
		r.Post("/campaigns/{id}/signals/pledge", handler.RecordPledgeSignal)
		r.Post("/campaigns/{id}/events/visit", handler.RecordVisitEvent)
		r.Post("/campaigns/{id}/events/order", handler.RecordOrderEvent)

		// Report assembly
		r.Get("/campaigns/{id}/report", handler.GetReport)
		r.Get("/campaigns/{id}/funnel", handler.GetFunnel)

		// Insight rule management
		r.Get("/insight-rules", handler.ListInsightRules)
		r.Get("/insight-rules/{id}", handler.GetInsightRule)
		r.Post("/insight-rules", handler.CreateInsightRule)
		r.Delete("/insight-rules/{id}", handler.DeleteInsightRule)
		r.Post("/insight-rules/reload", handler.ReloadInsightRules)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg.Server,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
