package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/guggeis/chatrelay/internal/config"
	"github.com/guggeis/chatrelay/internal/observability"
	"github.com/guggeis/chatrelay/internal/relay"
	"github.com/guggeis/chatrelay/internal/store"
)

var doctorPingUpstream bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on configuration, persona, store and upstream.

With --ping-upstream a short message is sent to the upstream API.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := observability.CLILogger

		log.Info("=== chatrelay doctor ===")
		log.Info("")

		total := 5
		if doctorPingUpstream {
			total++
		}
		step := 0
		next := func(name string) string {
			step++
			return fmt.Sprintf("[%d/%d] Checking %s...", step, total, name)
		}
		allChecks := true

		version := crucible.GetVersion()
		if version.Gofulmen != "" {
			log.Info(next("Gofulmen")+" ✅ v"+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		} else {
			log.Warn(next("Gofulmen") + " ⚠️  version unavailable")
			allChecks = false
		}

		cfg, err := config.Load(ctx, config.Options{ConfigFile: cfgFile, EnvFile: envFile})
		if err != nil {
			log.Error(next("configuration")+" ❌", zap.Error(err))
			ExitWithCode(log, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		log.Info(next("configuration")+" ✅ "+filepath.Dir(config.DefaultConfigPath()),
			zap.Int("rate_limit_requests", cfg.RateLimit.Requests),
			zap.Int("rate_limit_window_minutes", cfg.RateLimit.WindowMinutes))

		assistant, err := newAssistant(cfg, log)
		if err != nil {
			log.Error(next("persona")+" ❌", zap.Error(err))
			allChecks = false
		} else {
			log.Info(next("persona")+" ✅ "+assistant.Persona.Slug,
				zap.String("source", assistant.Persona.Source),
				zap.String("model", assistant.Persona.Model))
		}

		if msg, ok := checkStore(ctx, cfg); ok {
			log.Info(next("rate limit store") + " ✅ " + msg)
		} else {
			log.Warn(next("rate limit store") + " ⚠️  " + msg)
			allChecks = false
		}

		if cfg.Upstream.HasCredential() {
			log.Info(next("upstream credential") + " ✅ set")
		} else {
			log.Warn(next("upstream credential") + " ⚠️  not set (POST /api/chat answers CONFIG_ERROR)")
			allChecks = false
		}

		if doctorPingUpstream {
			switch {
			case assistant == nil || !cfg.Upstream.HasCredential():
				log.Warn(next("upstream API") + " ⚠️  skipped")
				allChecks = false
			default:
				pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				start := time.Now()
				_, err := assistant.Reply(pingCtx, "ping")
				cancel()
				if err != nil {
					log.Error(next("upstream API")+" ❌", zap.Error(err))
					allChecks = false
				} else {
					log.Info(next("upstream API")+" ✅ "+time.Since(start).Round(time.Millisecond).String(),
						zap.String("base_url", cfg.Upstream.BaseURL))
				}
			}
		}

		log.Info("")
		if allChecks {
			log.Info("✅ All checks passed")
			return
		}
		log.Warn("⚠️  Some checks need attention")
	},
}

func checkStore(ctx context.Context, cfg *config.Config) (string, bool) {
	location := cfg.Store.URL
	if location == "" {
		location = cfg.Store.Path
		if abs, err := filepath.Abs(location); err == nil {
			location = abs
		}
		if cfg.Store.Driver == store.DriverLibsql {
			if _, err := os.Stat(location); os.IsNotExist(err) {
				location += " (new)"
			}
		}
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("%s: %v", location, err), false
	}
	defer db.Close() // nolint:errcheck

	if err := db.Ping(ctx); err != nil {
		return fmt.Sprintf("%s: %v", location, err), false
	}

	n, err := db.Count(ctx, store.KeyQuery{Prefix: relay.KeyPrefix})
	if err != nil {
		return fmt.Sprintf("%s: %v", location, err), false
	}
	return fmt.Sprintf("%s %s, %d live window(s)", db.Driver(), location, n), true
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorPingUpstream, "ping-upstream", false, "send a test message to the upstream API")
}
