// File path: internal/reconcile/config.go
package reconcile

import "time"

// Config controls the background reconciliation loop.
type Config struct {
	Interval     time.Duration
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	BatchSize    int
}

// DefaultConfig returns the baseline reconciliation settings.
func DefaultConfig() Config {
	return Config{
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 5 * time.Second,
		BatchSize:    100,
	}
}

func applyDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaults.RetryBackoff
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	return cfg
}
