// Package core provides the API chassis for the ShiftDesk reconciliation
// service: a chi router with the cross-cutting middleware (panic recovery,
// request correlation, structured logging) applied before requests reach the
// trigger handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shiftdesk/internal/config"
)

// HealthProbe is a subsystem health check registered with the server. Each
// probe represents a dependency (currently the database) that must be
// reachable for the service to run jobs.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

// Server bundles the router with its cross-cutting dependencies so tests can
// inject their own config and logger.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	// HealthProbes are executed by GET /health.
	HealthProbes []HealthProbe

	// V1RouteRegistrars register domain handler routes under /v1. Populated
	// by the application entry point to avoid import cycles between core and
	// handler packages.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer validates dependencies and prepares the router. The caller mounts
// routes via MountRoutes after registering handlers.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
