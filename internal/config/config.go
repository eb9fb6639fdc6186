// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all process-level configuration. Operator-editable values that
// need to change without a redeploy (the shared secret, the rate limit, the
// enabled tenant list) live in the Settings row instead, see
// internal/repository.Repository.GetSettings.
type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Stream Log (C1)
	DefaultStreamName string        `env:"STREAM_NAME" envDefault:"pulse:events"`
	StreamMaxLength    int64         `env:"STREAM_MAX_LENGTH" envDefault:"100000"`
	ConsumerGroup       string        `env:"CONSUMER_GROUP" envDefault:"event_processors"`
	PendingMinIdle      time.Duration `env:"PENDING_MIN_IDLE" envDefault:"5s"`

	// Event Processor (C3)
	ProcessInterval time.Duration `env:"PROCESS_INTERVAL" envDefault:"10s"`

	// Hot Event Store (C4)
	HotStorePath string `env:"HOT_STORE_PATH" envDefault:"./data/pulse.db"`

	// Warehouse Sync (C5)
	WarehousePath     string        `env:"WAREHOUSE_PATH" envDefault:"./data/warehouse.db"`
	SyncInterval      time.Duration `env:"SYNC_INTERVAL" envDefault:"5m"`
	SyncLockTimeout   time.Duration `env:"SYNC_LOCK_TIMEOUT" envDefault:"60s"`
	SyncBatchTarget   int64         `env:"SYNC_BATCH_TARGET_BYTES" envDefault:"268435456"`

	// Introspection (C6)
	StatsWindow time.Duration `env:"STATS_WINDOW" envDefault:"10m"`

	// Log tailing
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"./data/pulse.log"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// WorkerID returns this process's consumer identity within the stream's
// consumer group, falling back to a fixed name when unset so a single
// developer machine still behaves deterministically.
func (c *Config) WorkerID() string {
	if id := os.Getenv("RQ_WORKER_ID"); id != "" {
		return id
	}
	return "default_worker"
}

// Load parses environment variables and returns a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
