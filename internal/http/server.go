package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default configuration values for the dashboard server.
const (
	DefaultReadTimeout       = 15 * time.Second
	DefaultWriteTimeout      = 15 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
)

// Server is the read-only dashboard: job listings, aggregates, the worker
// registry, and the Prometheus metrics endpoint. It exposes no mutations.
type Server struct {
	server *http.Server
}

// NewServer wires the router and the underlying http.Server.
// registry may be nil, in which case /metrics is not mounted.
func NewServer(addr string, store QueryStore, registry *prometheus.Registry) *Server {
	router := newRouter(NewHandler(store), registry)

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadTimeout:       DefaultReadTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
		},
	}
}

// newRouter creates and configures the chi router with middleware and routes.
func newRouter(h *Handler, registry *prometheus.Registry) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			slog.ErrorContext(r.Context(), "failed to write health check response", "error", err)
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/jobs", h.Jobs)
		r.Get("/jobs/{id}", h.Job)
		r.Get("/workers", h.Workers)
		r.Get("/dlq", h.DeadLetter)
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return r
}

// Start begins serving. It blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	slog.Info("dashboard listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
