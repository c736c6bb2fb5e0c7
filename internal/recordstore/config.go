// File path: internal/recordstore/config.go
package recordstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config controls the HTTP client for the authoritative record store.
type Config struct {
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
	Port   string `json:"port"`
	APIKey string `json:"api_key"`

	Timeout       time.Duration `json:"-"`
	TimeoutString string        `json:"timeout"`

	HTTPMaxIdleConns          int           `json:"http_max_idle_conns"`
	HTTPMaxIdlePerHost        int           `json:"http_max_idle_per_host"`
	HTTPMaxConnsPerHost       int           `json:"http_max_conns_per_host"`
	HTTPIdleConnTimeout       time.Duration `json:"-"`
	HTTPIdleConnTimeoutString string        `json:"http_idle_conn_timeout"`
}

// Merge overlays non-zero override fields onto the receiver.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.Scheme) != "" {
		result.Scheme = strings.TrimSpace(override.Scheme)
	}
	if strings.TrimSpace(override.Host) != "" {
		result.Host = strings.TrimSpace(override.Host)
	}
	if strings.TrimSpace(override.Port) != "" {
		result.Port = strings.TrimSpace(override.Port)
	}
	if strings.TrimSpace(override.APIKey) != "" {
		result.APIKey = strings.TrimSpace(override.APIKey)
	}
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	if strings.TrimSpace(override.TimeoutString) != "" {
		result.TimeoutString = strings.TrimSpace(override.TimeoutString)
	}
	if override.HTTPMaxIdleConns > 0 {
		result.HTTPMaxIdleConns = override.HTTPMaxIdleConns
	}
	if override.HTTPMaxIdlePerHost > 0 {
		result.HTTPMaxIdlePerHost = override.HTTPMaxIdlePerHost
	}
	if override.HTTPMaxConnsPerHost > 0 {
		result.HTTPMaxConnsPerHost = override.HTTPMaxConnsPerHost
	}
	if override.HTTPIdleConnTimeout > 0 {
		result.HTTPIdleConnTimeout = override.HTTPIdleConnTimeout
	}
	if strings.TrimSpace(override.HTTPIdleConnTimeoutString) != "" {
		result.HTTPIdleConnTimeoutString = strings.TrimSpace(override.HTTPIdleConnTimeoutString)
	}
	return result
}

// LoadConfig builds a Config from an optional JSON file plus environment
// variables, applying defaults last.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("RECORDSTORE_CONFIG_FILE")); path != "" {
		fileCfg, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	envCfg, err := loadConfigEnv()
	if err != nil {
		return Config{}, err
	}
	cfg = cfg.Merge(envCfg)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Scheme) == "" {
		c.Scheme = "http"
	}
	if strings.TrimSpace(c.Host) == "" {
		c.Host = "127.0.0.1"
	}
	if strings.TrimSpace(c.Port) == "" {
		c.Port = "8090"
	}
	if c.Timeout <= 0 {
		if c.TimeoutString != "" {
			if parsed, err := time.ParseDuration(c.TimeoutString); err == nil {
				c.Timeout = parsed
			}
		}
		if c.Timeout <= 0 {
			c.Timeout = 10 * time.Second
		}
	}
	if c.HTTPMaxIdleConns <= 0 {
		c.HTTPMaxIdleConns = 16
	}
	if c.HTTPMaxIdlePerHost <= 0 {
		c.HTTPMaxIdlePerHost = 8
	}
	if c.HTTPMaxConnsPerHost <= 0 {
		c.HTTPMaxConnsPerHost = 16
	}
	if c.HTTPIdleConnTimeout <= 0 {
		if c.HTTPIdleConnTimeoutString != "" {
			if parsed, err := time.ParseDuration(c.HTTPIdleConnTimeoutString); err == nil {
				c.HTTPIdleConnTimeout = parsed
			}
		}
		if c.HTTPIdleConnTimeout <= 0 {
			c.HTTPIdleConnTimeout = 90 * time.Second
		}
	}
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read recordstore config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse recordstore config: %w", err)
	}
	return cfg, nil
}

func loadConfigEnv() (Config, error) {
	cfg := Config{}
	cfg.Scheme = strings.TrimSpace(os.Getenv("RECORDSTORE_SCHEME"))
	cfg.Host = strings.TrimSpace(os.Getenv("RECORDSTORE_HOST"))
	cfg.Port = strings.TrimSpace(os.Getenv("RECORDSTORE_PORT"))
	cfg.APIKey = strings.TrimSpace(os.Getenv("RECORDSTORE_API_KEY"))
	if timeout := strings.TrimSpace(os.Getenv("RECORDSTORE_TIMEOUT")); timeout != "" {
		cfg.TimeoutString = timeout
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse RECORDSTORE_TIMEOUT: %w", err)
		}
		cfg.Timeout = parsed
	}
	if v := strings.TrimSpace(os.Getenv("RECORDSTORE_HTTP_MAX_IDLE_CONNS")); v != "" {
		value, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse RECORDSTORE_HTTP_MAX_IDLE_CONNS: %w", err)
		}
		cfg.HTTPMaxIdleConns = value
	}
	if v := strings.TrimSpace(os.Getenv("RECORDSTORE_HTTP_MAX_IDLE_PER_HOST")); v != "" {
		value, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse RECORDSTORE_HTTP_MAX_IDLE_PER_HOST: %w", err)
		}
		cfg.HTTPMaxIdlePerHost = value
	}
	if v := strings.TrimSpace(os.Getenv("RECORDSTORE_HTTP_MAX_CONNS_PER_HOST")); v != "" {
		value, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse RECORDSTORE_HTTP_MAX_CONNS_PER_HOST: %w", err)
		}
		cfg.HTTPMaxConnsPerHost = value
	}
	if v := strings.TrimSpace(os.Getenv("RECORDSTORE_HTTP_IDLE_CONN_TIMEOUT")); v != "" {
		cfg.HTTPIdleConnTimeoutString = v
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse RECORDSTORE_HTTP_IDLE_CONN_TIMEOUT: %w", err)
		}
		cfg.HTTPIdleConnTimeout = parsed
	}
	return cfg, nil
}
