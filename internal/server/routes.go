package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/guggeis/chatrelay/internal/observability"
	"github.com/guggeis/chatrelay/internal/server/handlers"
)

// ChatPath is the only public API route.
const ChatPath = "/api/chat"

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	if s.opts.Chat != nil {
		s.router.Method("POST", ChatPath, s.opts.Chat)
	}

	if !s.opts.PublicOnly {
		s.registerOperationalRoutes()
	}
	s.registerAdminEndpoint()
}

func (s *Server) registerOperationalRoutes() {
	health := s.opts.Health
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/health/startup", health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler(s.opts.Persona))
	s.router.Get("/metrics", MetricsHandler)
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger

	if s.opts.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no CHATRELAY_ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: 10, // requests per minute
		RateBurst: 5,
		Manager:   nil, // default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
