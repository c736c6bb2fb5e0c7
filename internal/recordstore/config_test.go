// File path: internal/recordstore/config_test.go
package recordstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "http", cfg.Scheme)
	require.Equal(t, "127.0.0.1", cfg.Host)
	require.Equal(t, "8090", cfg.Port)
	require.Equal(t, 10*time.Second, cfg.Timeout)
	require.Equal(t, 16, cfg.HTTPMaxIdleConns)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("RECORDSTORE_HOST", "records.internal")
	t.Setenv("RECORDSTORE_PORT", "9443")
	t.Setenv("RECORDSTORE_SCHEME", "https")
	t.Setenv("RECORDSTORE_API_KEY", "secret")
	t.Setenv("RECORDSTORE_TIMEOUT", "3s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "https", cfg.Scheme)
	require.Equal(t, "records.internal", cfg.Host)
	require.Equal(t, "9443", cfg.Port)
	require.Equal(t, "secret", cfg.APIKey)
	require.Equal(t, 3*time.Second, cfg.Timeout)
}

func TestLoadConfigRejectsBadTimeout(t *testing.T) {
	t.Setenv("RECORDSTORE_TIMEOUT", "not-a-duration")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestMergePrefersOverride(t *testing.T) {
	base := Config{Host: "a", Port: "1", Timeout: time.Second}
	merged := base.Merge(Config{Host: "b"})
	require.Equal(t, "b", merged.Host)
	require.Equal(t, "1", merged.Port)
	require.Equal(t, time.Second, merged.Timeout)
}
