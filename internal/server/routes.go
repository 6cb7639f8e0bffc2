package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/observability"
	"github.com/namelens/reachlens/internal/server/handlers"
)

func (s *Server) registerRoutes(resolve *handlers.ResolveHandler, adminToken string) {
	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)
	s.router.Get("/health/startup", s.health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/status", resolve.Status)
		r.Get("/syntax", resolve.Syntax)
		r.Get("/reputation", resolve.Reputation)
		r.Post("/batch", resolve.Batch)
	})

	s.registerAdminEndpoint(adminToken)
}

// registerAdminEndpoint exposes the gofulmen signal endpoint (reload,
// shutdown) behind a bearer token. Without a token it stays unregistered.
func (s *Server) registerAdminEndpoint(adminToken string) {
	logger := observability.Logger()

	if adminToken == "" {
		logger.Debug("Admin signal endpoint disabled (no REACHLENS_ADMIN_TOKEN set)")
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10, // per minute
		RateBurst: 5,
		Manager:   nil,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	logger.Info("Admin signal endpoint enabled",
		zap.String("path", "/admin/signal"),
		zap.String("rate_limit", "10/min, burst 5"))
	logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
}
