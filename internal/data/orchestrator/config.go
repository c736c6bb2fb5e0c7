// File path: internal/data/orchestrator/config.go
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config controls the construction of the orchestrator and its background
// reconciliation loop.
type Config struct {
	ReplicaPath    string
	SyncInterval   time.Duration
	SyncTimeout    time.Duration
	MaxSyncRetries int
	RetryBackoff   time.Duration
	SyncBatchSize  int
}

// DefaultConfig returns the baseline configuration used when no overrides
// are supplied.
func DefaultConfig() Config {
	return Config{
		ReplicaPath:    filepath.Join("data", "logbook.db"),
		SyncInterval:   time.Minute,
		SyncTimeout:    30 * time.Second,
		MaxSyncRetries: 3,
		RetryBackoff:   5 * time.Second,
		SyncBatchSize:  100,
	}
}

// LoadConfig builds a Config from defaults and environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if value := strings.TrimSpace(os.Getenv("LOGBOOK_REPLICA_PATH")); value != "" {
		cfg.ReplicaPath = value
	}
	if value := strings.TrimSpace(os.Getenv("LOGBOOK_SYNC_INTERVAL")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse LOGBOOK_SYNC_INTERVAL: %w", err)
		}
		cfg.SyncInterval = dur
	}
	if value := strings.TrimSpace(os.Getenv("LOGBOOK_SYNC_TIMEOUT")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse LOGBOOK_SYNC_TIMEOUT: %w", err)
		}
		cfg.SyncTimeout = dur
	}
	if value := strings.TrimSpace(os.Getenv("LOGBOOK_SYNC_RETRIES")); value != "" {
		retries, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse LOGBOOK_SYNC_RETRIES: %w", err)
		}
		if retries < 0 {
			retries = 0
		}
		cfg.MaxSyncRetries = retries
	}
	if value := strings.TrimSpace(os.Getenv("LOGBOOK_SYNC_BACKOFF")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse LOGBOOK_SYNC_BACKOFF: %w", err)
		}
		cfg.RetryBackoff = dur
	}
	if value := strings.TrimSpace(os.Getenv("LOGBOOK_SYNC_BATCH_SIZE")); value != "" {
		size, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse LOGBOOK_SYNC_BATCH_SIZE: %w", err)
		}
		if size > 0 {
			cfg.SyncBatchSize = size
		}
	}
	return applyDefaults(cfg), nil
}

func applyDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.ReplicaPath) == "" {
		cfg.ReplicaPath = defaults.ReplicaPath
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = defaults.SyncInterval
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = defaults.SyncTimeout
	}
	if cfg.MaxSyncRetries < 0 {
		cfg.MaxSyncRetries = defaults.MaxSyncRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaults.RetryBackoff
	}
	if cfg.SyncBatchSize <= 0 {
		cfg.SyncBatchSize = defaults.SyncBatchSize
	}
	return cfg
}

func (c Config) validate() error {
	if strings.TrimSpace(c.ReplicaPath) == "" {
		return fmt.Errorf("replica path required")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	if c.SyncTimeout <= 0 {
		return fmt.Errorf("sync timeout must be positive")
	}
	if c.RetryBackoff <= 0 {
		return fmt.Errorf("retry backoff must be positive")
	}
	return nil
}
