package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Chain.Timeout == 0 {
		cfg.Chain.Timeout = 15 * time.Second
	}
	if cfg.Chain.Burst == 0 {
		cfg.Chain.Burst = 1
	}
	if cfg.Chain.Retry.MaxAttempts == 0 {
		cfg.Chain.Retry.MaxAttempts = 3
	}
	if cfg.Chain.Retry.InitialDelay == 0 {
		cfg.Chain.Retry.InitialDelay = 500 * time.Millisecond
	}
	if cfg.Chain.Retry.MaxDelay == 0 {
		cfg.Chain.Retry.MaxDelay = 10 * time.Second
	}
	for i := range cfg.Chain.Providers {
		if cfg.Chain.Providers[i].Name == "" {
			cfg.Chain.Providers[i].Name = fmt.Sprintf("provider-%d", i)
		}
	}

	s := &cfg.Scheduler
	if s.Interval == 0 {
		s.Interval = 3 * time.Second
	}
	if s.BatchSize == 0 {
		s.BatchSize = 20
	}
	if s.MaxBackfillPerRun == 0 {
		s.MaxBackfillPerRun = 100
	}
	if s.MaxParityBackfill == 0 {
		s.MaxParityBackfill = 1000
	}
	if s.LockKey == "" {
		s.LockKey = "tronwatch:scheduler:lock"
	}
	if s.LockTTL == 0 {
		s.LockTTL = 30 * time.Second
	}

	p := &cfg.Pipeline
	if p.Cooldown == 0 {
		p.Cooldown = 5 * time.Minute
	}
	if p.ThrottleWindow == 0 {
		p.ThrottleWindow = 3
	}
	if p.ThrottleInterval == 0 {
		p.ThrottleInterval = 3 * time.Second
	}
	if p.HeadCacheTTL == 0 {
		p.HeadCacheTTL = 3 * time.Second
	}

	if cfg.Queue.Name == "" {
		cfg.Queue.Name = "blocks"
	}

	if cfg.Insight.PriceTTL == 0 {
		cfg.Insight.PriceTTL = time.Minute
	}
	if cfg.Insight.LabelTTL == 0 {
		cfg.Insight.LabelTTL = 10 * time.Minute
	}

	if cfg.Observers.QueueSize == 0 {
		cfg.Observers.QueueSize = 100
	}
	if cfg.Observers.WhaleThreshold == 0 {
		cfg.Observers.WhaleThreshold = 1_000_000
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgx"
	}
}

// Validate rejects configurations the watcher cannot run with.
func (c *AppConfig) Validate() error {
	if len(c.Chain.Providers) == 0 {
		return fmt.Errorf("chain.providers: at least one provider is required")
	}
	for _, p := range c.Chain.Providers {
		if p.URL == "" {
			return fmt.Errorf("chain.providers[%s]: url is required", p.Name)
		}
	}
	if c.Scheduler.BatchSize < 0 || c.Scheduler.MaxBackfillPerRun < 0 {
		return fmt.Errorf("scheduler: batch sizes must be positive")
	}
	if c.Pipeline.Cooldown < 0 {
		return fmt.Errorf("pipeline.cooldown must not be negative")
	}
	return nil
}
