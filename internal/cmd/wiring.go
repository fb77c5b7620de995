package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/guggeis/chatrelay/internal/config"
	"github.com/guggeis/chatrelay/internal/llm/driver/anthropic"
	"github.com/guggeis/chatrelay/internal/persona"
	"github.com/guggeis/chatrelay/internal/relay"
	"github.com/guggeis/chatrelay/internal/server"
	"github.com/guggeis/chatrelay/internal/server/handlers"
	servermw "github.com/guggeis/chatrelay/internal/server/middleware"
	"github.com/guggeis/chatrelay/internal/store"
)

// newAssistant resolves the persona and builds the upstream client.
func newAssistant(cfg *config.Config, logger *logging.Logger) (*relay.Assistant, error) {
	p, err := persona.Resolve(cfg.Upstream.PersonaFile)
	if err != nil {
		return nil, err
	}

	client := anthropic.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey)
	client.Timeout = cfg.Upstream.Timeout

	return &relay.Assistant{
		Driver:  client,
		Persona: p,
		Logger:  logger,
	}, nil
}

func newLimiter(cfg *config.Config, kv store.KV) *relay.Limiter {
	return &relay.Limiter{
		Store:       kv,
		MaxRequests: cfg.RateLimit.Requests,
		Window:      cfg.RateLimit.Window(),
	}
}

func newChatHandler(cfg *config.Config, kv store.KV, assistant *relay.Assistant) *handlers.ChatHandler {
	return &handlers.ChatHandler{
		Limiter:         newLimiter(cfg, kv),
		Assistant:       assistant,
		HasCredential:   cfg.Upstream.HasCredential,
		UpstreamTimeout: cfg.Upstream.Timeout,
	}
}

func newHealthManager(cfg *config.Config, backend store.Backend) *handlers.HealthManager {
	hm := handlers.NewHealthManager(versionInfo.Version)
	hm.RegisterChecker("store", handlers.StoreChecker{Store: backend})
	hm.RegisterChecker("upstream_credential", handlers.CredentialChecker{Configured: cfg.Upstream.HasCredential})
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", handlers.TelemetryChecker{})
	}
	return hm
}

func newServerOptions(cfg *config.Config, chat *handlers.ChatHandler, health *handlers.HealthManager, personaSlug string) server.Options {
	return server.Options{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		CORS: servermw.CORSPolicy{
			AllowedOrigin: cfg.CORS.AllowedOrigin,
			DomainSuffix:  cfg.CORS.DomainSuffix,
			DevOrigins:    cfg.CORS.DevOrigins,
		},
		Chat:       chat,
		Health:     health,
		Persona:    personaSlug,
		AdminToken: cfg.Server.AdminToken,
		PublicOnly: cfg.Server.PublicOnly,
	}
}

type expiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// runPurger deletes expired rows until ctx is done. Backends that expire
// lazily in memory are skipped.
func runPurger(ctx context.Context, backend store.Backend, interval time.Duration, logger *logging.Logger) {
	purger, ok := backend.(expiredPurger)
	if !ok || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purger.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("Failed to purge expired rate windows", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("Purged expired rate windows", zap.Int64("deleted", n))
			}
		}
	}
}
