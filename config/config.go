// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds runtime configuration for the server.
type Config struct {
	AppAddr         string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout  time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	StoreBackend string `envconfig:"STORE_BACKEND" default:"sqlite"`
	SQLitePath   string `envconfig:"SQLITE_PATH" default:"planner.db"`
	RedisAddr    string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPrefix  string `envconfig:"REDIS_PREFIX" default:""`
	PGDSN        string `envconfig:"PG_DSN"`

	SnapshotKey      string        `envconfig:"SNAPSHOT_KEY" default:"leave-planner-data"`
	AutosaveDebounce time.Duration `envconfig:"AUTOSAVE_DEBOUNCE" default:"500ms"`

	HolidayTimeout time.Duration `envconfig:"HOLIDAY_TIMEOUT" default:"10s"`

	CORSOrigins        []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE" default:"300"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements envconfig cannot express.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	case BackendPostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("PG_DSN must be provided for the %s backend", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.SnapshotKey == "" {
		return fmt.Errorf("SNAPSHOT_KEY must not be empty")
	}
	return nil
}

// NewLogger returns a configured slog.Logger based on configuration.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: parseLevel(cfg)}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(cfg *Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
