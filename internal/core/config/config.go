package config

import (
	"time"

	redisclient "github.com/vietddude/tronwatch/internal/infra/redis"
	"github.com/vietddude/tronwatch/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Chain     ChainConfig        `yaml:"chain"`
	Scheduler SchedulerConfig    `yaml:"scheduler"`
	Pipeline  PipelineConfig     `yaml:"pipeline"`
	Queue     QueueConfig        `yaml:"queue"`
	Insight   InsightConfig      `yaml:"insight"`
	Observers ObserversConfig    `yaml:"observers"`
	Redis     redisclient.Config `yaml:"redis"`
	Logging   LoggingConfig      `yaml:"logging"`
	Database  postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ChainConfig holds the TRON full node endpoints and client limits.
type ChainConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
	RateLimit float64          `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst     int              `yaml:"burst"`
	Timeout   time.Duration    `yaml:"timeout"`
	Retry     RetryConfig      `yaml:"retry"`
}

// ProviderConfig holds settings for an HTTP API provider.
type ProviderConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// SchedulerConfig controls target selection.
type SchedulerConfig struct {
	Interval          time.Duration `yaml:"interval"`
	BatchSize         int           `yaml:"batch_size"`
	MaxBackfillPerRun int           `yaml:"max_backfill_per_run"`
	MaxParityBackfill int           `yaml:"max_parity_backfill"`
	LockKey           string        `yaml:"lock_key"`
	LockTTL           time.Duration `yaml:"lock_ttl"`
}

// PipelineConfig controls block processing.
type PipelineConfig struct {
	Cooldown         time.Duration `yaml:"cooldown"`
	ThrottleWindow   uint64        `yaml:"throttle_window"`
	ThrottleInterval time.Duration `yaml:"throttle_interval"`
	HeadCacheTTL     time.Duration `yaml:"head_cache_ttl"`
}

// QueueConfig names the job queue. Blocks are always processed one at a time.
type QueueConfig struct {
	Name string `yaml:"name"`
}

// InsightConfig configures the pricing and address label services.
type InsightConfig struct {
	PriceURL string        `yaml:"price_url"`
	PriceTTL time.Duration `yaml:"price_ttl"`
	LabelTTL time.Duration `yaml:"label_ttl"`
}

type ObserversConfig struct {
	WhaleThreshold float64 `yaml:"whale_threshold"` // TRX
	QueueSize      int     `yaml:"queue_size"`

	// WatchAddresses are base58 addresses whose activity is published.
	WatchAddresses []string `yaml:"watch_addresses"`
}
