// Package config loads chatrelay configuration from defaults, an optional
// YAML file, a .env file and the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName is used for XDG directories and the default database file.
	AppName = "chatrelay"

	// EnvPrefix namespaces the structured environment variables.
	EnvPrefix = "CHATRELAY"

	DefaultRateLimitRequests      = 100
	DefaultRateLimitWindowMinutes = 1
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Options controls where Load looks for configuration.
type Options struct {
	// ConfigFile is an explicit config path. When empty the default locations are searched.
	ConfigFile string

	// EnvFile is a dotenv file. When empty ".env" in the working directory is tried.
	EnvFile string
}

// envBinding maps a config key to the environment variables that may set it.
// Earlier names take precedence.
type envBinding struct {
	Key   string
	Names []string
}

// envBindings lists the unprefixed names used by existing deployments next to
// the CHATRELAY_* names.
func envBindings() []envBinding {
	prefix := EnvPrefix + "_"
	return []envBinding{
		{Key: "environment", Names: []string{prefix + "ENVIRONMENT", "ENVIRONMENT"}},

		{Key: "server.host", Names: []string{prefix + "HOST"}},
		{Key: "server.port", Names: []string{prefix + "PORT", "PORT"}},
		{Key: "server.read_timeout", Names: []string{prefix + "READ_TIMEOUT"}},
		{Key: "server.write_timeout", Names: []string{prefix + "WRITE_TIMEOUT"}},
		{Key: "server.idle_timeout", Names: []string{prefix + "IDLE_TIMEOUT"}},
		{Key: "server.shutdown_timeout", Names: []string{prefix + "SHUTDOWN_TIMEOUT"}},
		{Key: "server.admin_token", Names: []string{prefix + "ADMIN_TOKEN"}},
		{Key: "server.public_only", Names: []string{prefix + "PUBLIC_ONLY"}},

		{Key: "cors.allowed_origin", Names: []string{prefix + "ALLOWED_ORIGIN", "ALLOWED_ORIGIN"}},
		{Key: "cors.domain_suffix", Names: []string{prefix + "CORS_DOMAIN_SUFFIX"}},
		{Key: "cors.dev_origins", Names: []string{prefix + "CORS_DEV_ORIGINS"}},

		{Key: "rate_limit.requests", Names: []string{prefix + "RATE_LIMIT_REQUESTS", "RATE_LIMIT_REQUESTS"}},
		{Key: "rate_limit.window_minutes", Names: []string{prefix + "RATE_LIMIT_WINDOW_MINUTES", "RATE_LIMIT_WINDOW_MINUTES"}},

		{Key: "upstream.api_key", Names: []string{prefix + "UPSTREAM_API_KEY", "ANTHROPIC_API_KEY"}},
		{Key: "upstream.base_url", Names: []string{prefix + "UPSTREAM_BASE_URL"}},
		{Key: "upstream.timeout", Names: []string{prefix + "UPSTREAM_TIMEOUT"}},
		{Key: "upstream.persona_file", Names: []string{prefix + "PERSONA_FILE"}},

		{Key: "store.driver", Names: []string{prefix + "DB_DRIVER"}},
		{Key: "store.path", Names: []string{prefix + "DB_PATH"}},
		{Key: "store.url", Names: []string{prefix + "DB_URL"}},
		{Key: "store.auth_token", Names: []string{prefix + "DB_AUTH_TOKEN"}},

		{Key: "logging.level", Names: []string{prefix + "LOG_LEVEL"}},
		{Key: "logging.profile", Names: []string{prefix + "LOG_PROFILE"}},

		{Key: "metrics.enabled", Names: []string{prefix + "METRICS_ENABLED"}},
		{Key: "metrics.port", Names: []string{prefix + "METRICS_PORT"}},
	}
}

// Load builds the configuration. It is safe to call again on reload.
func Load(ctx context.Context, opts Options) (*Config, error) {
	if err := loadDotEnv(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)

	for _, binding := range envBindings() {
		args := append([]string{binding.Key}, binding.Names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", binding.Key, err)
		}
	}

	if err := readConfigFile(v, opts.ConfigFile); err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.Warnings = coerceRateLimit(v)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalize(cfg)
	setConfig(cfg)

	return cfg, nil
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.public_only", false)

	v.SetDefault("cors.allowed_origin", "https://julian.guggeis.org")
	v.SetDefault("cors.domain_suffix", ".guggeis.org")
	v.SetDefault("cors.dev_origins", []string{"http://localhost:4321", "http://localhost:3000"})

	v.SetDefault("rate_limit.requests", DefaultRateLimitRequests)
	v.SetDefault("rate_limit.window_minutes", DefaultRateLimitWindowMinutes)

	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.base_url", "https://api.anthropic.com")
	v.SetDefault("upstream.timeout", "30s")
	v.SetDefault("upstream.persona_file", "")

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}

func readConfigFile(v *viper.Viper, path string) error {
	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	if dir := gfconfig.GetAppConfigDir(AppName); strings.TrimSpace(dir) != "" {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// loadDotEnv populates unset environment variables from a dotenv file.
// A missing default .env is not an error; a missing explicit file is.
func loadDotEnv(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// coerceRateLimit resets unparseable rate limit values to their defaults
// instead of failing the load.
func coerceRateLimit(v *viper.Viper) []string {
	var warnings []string
	for key, def := range map[string]int{
		"rate_limit.requests":       DefaultRateLimitRequests,
		"rate_limit.window_minutes": DefaultRateLimitWindowMinutes,
	} {
		raw := v.Get(key)
		str, ok := raw.(string)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
			v.Set(key, n)
			continue
		}
		v.Set(key, def)
		warnings = append(warnings, fmt.Sprintf("%s=%q is not an integer, using %d", key, str, def))
	}
	sort.Strings(warnings)
	return warnings
}

func normalize(cfg *Config) {
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = DefaultRateLimitRequests
	}
	if cfg.RateLimit.WindowMinutes <= 0 {
		cfg.RateLimit.WindowMinutes = DefaultRateLimitWindowMinutes
	}

	cfg.Upstream.APIKey = strings.TrimSpace(cfg.Upstream.APIKey)
	cfg.CORS.AllowedOrigin = strings.TrimRight(strings.TrimSpace(cfg.CORS.AllowedOrigin), "/")

	origins := cfg.CORS.DevOrigins[:0]
	for _, origin := range cfg.CORS.DevOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	cfg.CORS.DevOrigins = origins

	if strings.TrimSpace(cfg.Store.Driver) == "" {
		cfg.Store.Driver = "libsql"
	}
	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}
