// Package observability owns the process-wide loggers and telemetry system.
package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger writes human-readable lines for CLI commands.
	CLILogger *logging.Logger

	// ServerLogger writes JSON lines for the HTTP service.
	ServerLogger *logging.Logger
)

// InitCLILogger installs CLILogger. verbose lowers the level to DEBUG.
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		fatal("Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger installs ServerLogger with the structured profile.
// An empty environment is reported as "production".
func InitServerLogger(serviceName string, logLevel string, environment string, namespace ...string) {
	if strings.TrimSpace(environment) == "" {
		environment = "production"
	}

	fields := map[string]any{"environment": environment}
	if len(namespace) > 0 && namespace[0] != "" {
		fields["namespace"] = namespace[0]
	}

	logger, err := logging.New(serverLoggerConfig(serviceName, parseLogLevel(logLevel), environment, fields))
	if err != nil {
		fatal("Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

func serverLoggerConfig(service, level, environment string, fields map[string]any) *logging.LoggerConfig {
	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: level,
		Service:      service,
		Environment:  environment,
		StaticFields: fields,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:    "console",
				Format:  "json",
				Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

// parseLogLevel maps a config level name onto a gofulmen severity; unknown
// names become INFO.
func parseLogLevel(levelStr string) string {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// fatal runs before any logger exists, so it writes straight to stderr.
func fatal(msg string, err error) {
	code := foundry.ExitConfigInvalid
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}
	os.Exit(int(code))
}
