package config

import (
	"strings"
	"time"
)

// Config represents the complete application configuration.
// Layer 1: built-in defaults
// Layer 2: config file (--config, ./config/config.yaml, $XDG_CONFIG_HOME/chatrelay/config.yaml)
// Layer 3: .env file and environment variables
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	CORS        CORSConfig      `mapstructure:"cors"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Upstream    UpstreamConfig  `mapstructure:"upstream"`
	Store       StoreConfig     `mapstructure:"store"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`

	// Warnings lists settings Load replaced with defaults.
	Warnings []string `mapstructure:"-"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// AdminToken enables POST /admin/signal when set.
	AdminToken string `mapstructure:"admin_token"`
	// PublicOnly drops /health*, /version and /metrics so only the chat
	// route answers.
	PublicOnly bool `mapstructure:"public_only"`
}

// CORSConfig controls which browser origins receive an echoed
// Access-Control-Allow-Origin header.
type CORSConfig struct {
	// AllowedOrigin is the primary site origin. It is also the fallback value
	// sent to origins that are not allowed.
	AllowedOrigin string `mapstructure:"allowed_origin"`

	// DomainSuffix allows every origin ending in it (e.g. preview deployments).
	DomainSuffix string `mapstructure:"domain_suffix"`

	// DevOrigins are local development servers.
	DevOrigins []string `mapstructure:"dev_origins"`
}

// RateLimitConfig configures the fixed-window limiter.
type RateLimitConfig struct {
	Requests      int `mapstructure:"requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// Window returns the window length as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// UpstreamConfig configures the completion provider.
type UpstreamConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PersonaFile string        `mapstructure:"persona_file"`
}

// HasCredential reports whether an API key is configured.
func (c UpstreamConfig) HasCredential() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}
