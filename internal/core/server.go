// Package core provides the API chassis for the DTTools backend.
// It creates a chi router and enforces cross-cutting concerns -- security,
// logging, authentication, and limit gating -- before requests reach
// domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dttools/internal/config"
	"dttools/internal/types"
)

// Server encapsulates all dependencies for the DTTools API, allowing for
// easy injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config        *config.Config
	Logger        *slog.Logger
	Validator     *Validator
	Authenticator Authenticator     // Resolves bearer tokens to Actors; injected for testability.
	Entitlements  EntitlementSource // Resolves the request-scoped entitlement for an actor.
	Usage         UsageSource       // Supplies current usage counts for the limit gates.
	Clock         types.Clock

	// HealthProbes are executed concurrently by the health endpoint.
	HealthProbes []HealthProbe

	// APIRouteRegistrars attach domain handler routes under /api. They are
	// populated by the application entry point to avoid import cycles
	// between core and handler packages.
	APIRouteRegistrars []func(chi.Router)

	// Internal router
	router *chi.Mux
}

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. It performs a "fail-fast" check on critical
// configuration.
//
// The caller is responsible for mounting routes (via MountRoutes or equivalent)
// after construction. This separation allows tests to customize route
// registration.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		Clock:     types.RealClock{},
		router:    chi.NewRouter(),
	}

	return s, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
// This is used internally by route-mounting methods and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// clock returns the injected clock, falling back to the real clock when
// tests construct a Server without one.
func (s *Server) clock() types.Clock {
	if s.Clock != nil {
		return s.Clock
	}
	return types.RealClock{}
}

// Shutdown performs a graceful termination of server resources.
// Connection pools are owned by main and closed there; the server only
// logs the transition so operators can correlate in-flight request drains.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")
	s.Logger.Info("server shutdown complete")
	return nil
}
