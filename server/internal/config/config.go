package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// STORELENS_SERVER_HTTP_PORT.
const EnvPrefix = "STORELENS_"

// Default values for the configuration.
const (
	DefaultHTTPPort       = 8080
	DefaultLogLevel       = "info"
	DefaultMaxUploadBytes = 32 << 20
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultStagingPath    = "uploads"
	DefaultStagingTTL     = 10 * time.Minute
	DefaultTopN           = 3
	DefaultTimezone       = "UTC"
)

// Config holds the whole service configuration parsed from config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Analysis AnalysisConfig `yaml:"analysis" envPrefix:"ANALYSIS_"`
	Rules    RulesConfig    `yaml:"rules"`
}

// ServerConfig holds the HTTP transport settings.
type ServerConfig struct {
	// HTTPPort is the port the web form, API and /metrics listen on (default 8080).
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// MaxUploadBytes bounds the size of one analyze request body.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`

	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`

	// Staging controls where uploads are written before parsing.
	Staging StagingConfig `yaml:"staging" envPrefix:"STAGING_"`
}

// StagingConfig controls the on-disk staging area for uploads.
type StagingConfig struct {
	// Enabled writes each upload to Path before it is parsed. When false,
	// uploads are parsed straight from the request.
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Path is the staging directory. It is created if missing.
	Path string `yaml:"path" env:"PATH"`

	// TTL is how long a leftover staged file survives before the sweeper
	// removes it. Files are normally removed when their request finishes.
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// AnalysisConfig controls how tables are read and metrics are computed.
type AnalysisConfig struct {
	// TopN is the length of the top expired products list (default 3).
	TopN int `yaml:"top_n" env:"TOP_N"`

	// Timezone is the IANA zone applied to dates without an offset.
	Timezone string `yaml:"timezone" env:"TIMEZONE"`

	// DateLayouts overrides the Go time layouts tried for expiration dates.
	DateLayouts []string `yaml:"date_layouts" env:"DATE_LAYOUTS" envSeparator:"|"`
}

// Location resolves Timezone.
func (a AnalysisConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(a.Timezone)
}

// RulesConfig holds threshold rules evaluated against every result and the
// webhooks notified when one fires.
type RulesConfig struct {
	Rules    []Rule          `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// Rule defines one threshold condition.
type Rule struct {
	// Name is the human-readable rule identifier.
	Name string `yaml:"name"`

	// Condition is an expression like "expired_pct > 20" or "combo_aov < 15".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info. Defaults to warning.
	Severity string `yaml:"severity"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads the config file at path, applies environment overrides and
// validates the result. An empty path skips the file, so defaults plus
// environment are used.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:       DefaultHTTPPort,
			LogLevel:       DefaultLogLevel,
			MaxUploadBytes: DefaultMaxUploadBytes,
			ReadTimeout:    DefaultReadTimeout,
			WriteTimeout:   DefaultWriteTimeout,
			Staging: StagingConfig{
				Path: DefaultStagingPath,
				TTL:  DefaultStagingTTL,
			},
		},
		Analysis: AnalysisConfig{
			TopN:     DefaultTopN,
			Timezone: DefaultTimezone,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", cfg.Server.LogLevel)
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if cfg.Server.Staging.Enabled && cfg.Server.Staging.Path == "" {
		return fmt.Errorf("server.staging.path is required when staging is enabled")
	}
	if cfg.Server.Staging.TTL < 0 {
		return fmt.Errorf("server.staging.ttl must not be negative")
	}
	if cfg.Analysis.TopN <= 0 {
		return fmt.Errorf("analysis.top_n must be positive")
	}
	if _, err := cfg.Analysis.Location(); err != nil {
		return fmt.Errorf("analysis.timezone %q: %w", cfg.Analysis.Timezone, err)
	}
	for i, r := range cfg.Rules.Rules {
		if r.Name == "" {
			return fmt.Errorf("rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("rules[%d] %q: condition is required", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, w := range cfg.Rules.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("rules.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}
