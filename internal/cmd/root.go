package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/guggeis/chatrelay/internal/config"
	"github.com/guggeis/chatrelay/internal/llm/driver"
	"github.com/guggeis/chatrelay/internal/observability"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	traceFile string

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Rate-limited chat relay for the campaign site assistant",
	Long: `chatrelay accepts chat messages from the campaign website, enforces a
per-client request budget and answers through the Anthropic Messages API.

Use the subcommands to perform specific operations.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Config loading must not emit metrics to stdout; serve replaces this system.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is %s)", config.DefaultConfigPath()))
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default ./.env when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace upstream requests/responses to NDJSON file")
}

func initLogging() {
	observability.InitCLILogger(config.AppName, verbose)

	if traceFile != "" {
		// The trace file stays open for the whole process.
		if _, err := driver.EnableTracing(traceFile); err != nil {
			observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		} else {
			observability.CLILogger.Debug("Upstream tracing enabled", zap.String("file", traceFile))
		}
	}
}

// loadConfig loads configuration using the global flags. Failures exit with
// ExitConfigInvalid.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(cmd.Context(), config.Options{
		ConfigFile: cfgFile,
		EnvFile:    envFile,
	})
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}
	if log := observability.CLILogger; log != nil {
		for _, w := range cfg.Warnings {
			log.Warn("Configuration value replaced with default", zap.String("detail", w))
		}
	}
	return cfg
}
