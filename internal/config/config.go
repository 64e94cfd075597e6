// Package config loads and validates resolver configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ResolverConfig governs batch resolution behavior.
type ResolverConfig struct {
	ModeDefault     string `mapstructure:"mode_default"`
	LimitDefault    int    `mapstructure:"limit_default"`
	UserAgent       string `mapstructure:"user_agent"`
	CitationPauseMs int    `mapstructure:"citation_pause_ms"`
	ResolvePauseMs  int    `mapstructure:"resolve_pause_ms"`
}

// HTTPConfig configures outbound HTTP fetch behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the headless rendering fallback.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// ArchiveConfig configures the public web archive client.
type ArchiveConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// SnapshotConfig sets the evidence snapshot sink.
type SnapshotConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RESOLVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("resolver.mode_default", "agency-first")
	v.SetDefault("resolver.limit_default", 50)
	v.SetDefault("resolver.user_agent", "evidence-resolver/0.1")
	v.SetDefault("resolver.citation_pause_ms", 250)
	v.SetDefault("resolver.resolve_pause_ms", 1500)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("archive.enabled", true)
	v.SetDefault("archive.endpoint", "https://web.archive.org/save/")
	v.SetDefault("archive.timeout_seconds", 10)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("snapshot.provider", "none")
	v.SetDefault("snapshot.prefix", "evidence")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Resolver.ModeDefault {
	case "agency-only", "agency-first", "full":
	default:
		return fmt.Errorf("resolver.mode_default must be one of agency-only, agency-first, full")
	}
	if c.Resolver.LimitDefault <= 0 {
		return fmt.Errorf("resolver.limit_default must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.NavTimeoutSec <= 0 {
		return fmt.Errorf("headless.nav_timeout_seconds must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Snapshot.Provider {
	case "", "none", "memory":
	case "gcs":
		if c.Snapshot.GCSBucket == "" {
			return fmt.Errorf("snapshot.gcs_bucket must be set when provider is gcs")
		}
	default:
		return fmt.Errorf("snapshot.provider must be one of none, memory, gcs")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// CitationPause converts the per-citation pacing config into a duration.
func (c Config) CitationPause() time.Duration {
	return time.Duration(c.Resolver.CitationPauseMs) * time.Millisecond
}

// ResolvePause converts the post-resolution pacing config into a duration.
func (c Config) ResolvePause() time.Duration {
	return time.Duration(c.Resolver.ResolvePauseMs) * time.Millisecond
}
