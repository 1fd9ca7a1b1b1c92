// Package config loads ecoprog settings from ecoprog.yaml, ECOPROG_* environment
// variables and built-in defaults, in increasing order of precedence for env.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. ECOPROG_DATABASE_PATH.
const EnvPrefix = "ECOPROG"

// Config is the complete ecoprog configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Actor    ActorConfig    `mapstructure:"actor"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path          string `mapstructure:"path"` // empty uses ~/.ecoprog/ecoprog.db
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // empty disables the rotated JSON file
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// ActorConfig is the default identity for CLI operations.
type ActorConfig struct {
	ID    string `mapstructure:"id"`
	Admin bool   `mapstructure:"admin"`
}

// OutboxConfig tunes signal delivery.
type OutboxConfig struct {
	Consumer     string        `mapstructure:"consumer"`
	BatchSize    int           `mapstructure:"batch_size"`
	LeaseTTL     time.Duration `mapstructure:"lease_ttl"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryInitial time.Duration `mapstructure:"retry_initial"`
	RetryMax     time.Duration `mapstructure:"retry_max"`
	Inline       bool          `mapstructure:"inline"`
}

// RedisConfig configures the optional pub/sub publisher.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// TracingConfig configures OTLP span export.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// MetricsConfig configures the Prometheus listener used by the dispatcher.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// setDefaults registers a default for every key so env overrides resolve
// even when no config file exists.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "")
	v.SetDefault("database.busy_timeout_ms", 5000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)

	v.SetDefault("actor.id", "")
	v.SetDefault("actor.admin", false)

	v.SetDefault("outbox.consumer", "ecoprog")
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.lease_ttl", 30*time.Second)
	v.SetDefault("outbox.poll_interval", 2*time.Second)
	v.SetDefault("outbox.max_attempts", 8)
	v.SetDefault("outbox.retry_initial", time.Second)
	v.SetDefault("outbox.retry_max", 5*time.Minute)
	v.SetDefault("outbox.inline", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "ecoprog.signals")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "ecoprog")

	v.SetDefault("metrics.addr", ":9464")
}

// LoadConfig reads configuration. An explicit path must exist; otherwise
// ecoprog.yaml is searched in the working directory and ~/.ecoprog, and a
// missing file falls back to defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ecoprog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".ecoprog"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Outbox.BatchSize < 1 {
		return fmt.Errorf("outbox.batch_size must be positive, got %d", c.Outbox.BatchSize)
	}
	if c.Outbox.MaxAttempts < 1 {
		return fmt.Errorf("outbox.max_attempts must be positive, got %d", c.Outbox.MaxAttempts)
	}
	if c.Outbox.RetryMax < c.Outbox.RetryInitial {
		return fmt.Errorf("outbox.retry_max (%s) is below outbox.retry_initial (%s)", c.Outbox.RetryMax, c.Outbox.RetryInitial)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
