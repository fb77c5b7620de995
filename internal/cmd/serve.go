package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/guggeis/chatrelay/internal/config"
	errwrap "github.com/guggeis/chatrelay/internal/errors"
	"github.com/guggeis/chatrelay/internal/metrics"
	"github.com/guggeis/chatrelay/internal/observability"
	"github.com/guggeis/chatrelay/internal/server"
	"github.com/guggeis/chatrelay/internal/store"
)

var (
	serverPort    int
	serverHost    string
	purgeInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the chat relay HTTP server with graceful shutdown support.

Routes:
  POST /api/chat        chat endpoint (rate limited)
  GET  /health[/live|/ready|/startup]
  GET  /version
  GET  /metrics

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read configuration and report settings that need a restart`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := loadConfig(cmd)
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serverHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		observability.InitServerLogger(config.AppName, cfg.Logging.Level, cfg.Environment)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, fmt.Errorf("metrics initialization failed: %w", err))
			}
		}

		backend, err := store.Open(ctx, cfg.Store)
		if err != nil {
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Failed to open rate limit store", err)
		}

		assistant, err := newAssistant(cfg, logger)
		if err != nil {
			_ = backend.Close()
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Failed to load persona", err)
		}

		if !cfg.Upstream.HasCredential() {
			logger.Warn("No upstream API key configured; POST /api/chat will answer CONFIG_ERROR")
		}

		logger.Info("Initializing server",
			zap.String("service", config.AppName),
			zap.String("version", versionInfo.Version),
			zap.String("environment", cfg.Environment),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.String("store_driver", backend.Driver()),
			zap.String("persona", assistant.Persona.Slug),
			zap.Int("rate_limit_requests", cfg.RateLimit.Requests),
			zap.Int("rate_limit_window_minutes", cfg.RateLimit.WindowMinutes),
			zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
			zap.Int("metrics_port", observability.GetMetricsPort()))

		chat := newChatHandler(cfg, backend, assistant)
		health := newHealthManager(cfg, backend)
		srv := server.New(newServerOptions(cfg, chat, health, assistant.Persona.Slug))

		purgeCtx, stopPurger := context.WithCancel(context.Background())
		go runPurger(purgeCtx, backend, purgeInterval, logger)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: server, then store, then logger.
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			stopPurger()
			if err := backend.Close(); err != nil {
				logger.Warn("Failed to close store", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, fmt.Errorf("server shutdown failed: %w", err))
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: re-reading configuration")

			next, err := config.Load(ctx, config.Options{ConfigFile: cfgFile, EnvFile: envFile})
			if err != nil {
				logger.Error("Failed to reload configuration", zap.Error(err))
				return errwrap.WrapConfigError(ctx, err)
			}

			for _, change := range restartRequired(cfg, next) {
				logger.Warn("Configuration change requires restart", zap.String("setting", change))
			}
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		metrics.SetServerStartTime(time.Now().Unix())

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(ctx); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(ctx, fmt.Errorf("server error: %w", err))
		}

		return nil
	},
}

// restartRequired lists settings that differ between cur and next. The
// running server keeps the values it started with.
func restartRequired(cur, next *config.Config) []string {
	var changed []string
	add := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}

	add("server.host", cur.Server.Host != next.Server.Host)
	add("server.port", cur.Server.Port != next.Server.Port)
	add("server.public_only", cur.Server.PublicOnly != next.Server.PublicOnly)
	add("cors.allowed_origin", cur.CORS.AllowedOrigin != next.CORS.AllowedOrigin)
	add("cors.domain_suffix", cur.CORS.DomainSuffix != next.CORS.DomainSuffix)
	add("rate_limit.requests", cur.RateLimit.Requests != next.RateLimit.Requests)
	add("rate_limit.window_minutes", cur.RateLimit.WindowMinutes != next.RateLimit.WindowMinutes)
	add("upstream.api_key", cur.Upstream.APIKey != next.Upstream.APIKey)
	add("upstream.base_url", cur.Upstream.BaseURL != next.Upstream.BaseURL)
	add("upstream.persona_file", cur.Upstream.PersonaFile != next.Upstream.PersonaFile)
	add("store", cur.Store != next.Store)
	return changed
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host (overrides server.host)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port (overrides server.port)")
	serveCmd.Flags().DurationVar(&purgeInterval, "purge-interval", 10*time.Minute, "interval for deleting expired rate windows (0 disables)")
}
