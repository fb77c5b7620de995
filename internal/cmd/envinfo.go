package cmd

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/guggeis/chatrelay/internal/config"
	"github.com/guggeis/chatrelay/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information. Secrets are reported as set/not set.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		version := crucible.GetVersion()

		log.Info("=== chatrelay Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + config.AppName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info("")

		cfg, err := config.Load(cmd.Context(), config.Options{ConfigFile: cfgFile, EnvFile: envFile})
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		log.Info("Server:")
		log.Info("  Environment:    " + cfg.Environment)
		log.Info(fmt.Sprintf("  Listen:         %s:%d", cfg.Server.Host, cfg.Server.Port))
		log.Info("  Admin Endpoint: " + setOrNot(cfg.Server.AdminToken))
		log.Info("  Public Only:    " + strconv.FormatBool(cfg.Server.PublicOnly))
		log.Info("  Config File:    " + config.DefaultConfigPath())
		log.Info("")

		log.Info("CORS:")
		log.Info("  Allowed Origin: " + cfg.CORS.AllowedOrigin)
		log.Info("  Domain Suffix:  " + cfg.CORS.DomainSuffix)
		log.Info("  Dev Origins:    " + strings.Join(cfg.CORS.DevOrigins, ", "))
		log.Info("")

		log.Info("Rate Limit:")
		log.Info(fmt.Sprintf("  Requests:       %d per %d minute(s)", cfg.RateLimit.Requests, cfg.RateLimit.WindowMinutes))
		log.Info("  Store Driver:   " + cfg.Store.Driver)
		if strings.TrimSpace(cfg.Store.URL) != "" {
			log.Info("  Store URL:      " + cfg.Store.URL)
			log.Info("  Auth Token:     " + setOrNot(cfg.Store.AuthToken))
		} else {
			log.Info("  Store Path:     " + cfg.Store.Path)
		}
		log.Info("")

		log.Info("Upstream:")
		log.Info("  Base URL:       " + cfg.Upstream.BaseURL)
		log.Info("  Timeout:        " + cfg.Upstream.Timeout.String())
		log.Info("  API Key:        " + setOrNot(cfg.Upstream.APIKey))
		persona := cfg.Upstream.PersonaFile
		if persona == "" {
			persona = "(embedded default)"
		}
		log.Info("  Persona:        " + persona)
		log.Info("")

		log.Info("Observability:")
		log.Info("  Log Level:      " + cfg.Logging.Level)
		log.Info("  Log Profile:    " + cfg.Logging.Profile)
		log.Info(fmt.Sprintf("  Metrics:        %t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port))
	},
}

func setOrNot(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(not set)"
	}
	return "(set)"
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
