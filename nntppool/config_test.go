package nntppool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig("news.example.com", 119)
	assert.Equal(t, "news.example.com", cfg.Host)
	assert.Equal(t, 119, cfg.Port)
	assert.Equal(t, 1, cfg.MaxConnections)
	assert.Equal(t, int64(60_000), cfg.KeepaliveIntervalMs)
	assert.Equal(t, int64(300_000), cfg.IdleGracePeriodMs)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate_MissingMaxConnections(t *testing.T) {
	t.Parallel()

	cfg := Config{Host: "news.example.com", Port: 119}
	require.Error(t, cfg.Validate())
}

func TestConfig_Validate_CredentialsBothOrNeither(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig("news.example.com", 119)
	cfg.Password = "secret"
	require.Error(t, cfg.Validate())

	cfg.Username = "alice"
	require.NoError(t, cfg.Validate())
}

func TestConfigFromMap_StartsFromDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := ConfigFromMap(map[string]any{
		"host":            "news.example.com",
		"port":            563,
		"max_connections": 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "news.example.com", cfg.Host)
	assert.Equal(t, 4, cfg.MaxConnections)
	assert.Equal(t, int64(60_000), cfg.KeepaliveIntervalMs)
}

func TestConfigFromMap_OverridesKeepalive(t *testing.T) {
	t.Parallel()

	cfg, err := ConfigFromMap(map[string]any{
		"host":                  "news.example.com",
		"port":                  563,
		"max_connections":       2,
		"keepalive_interval_ms": 0,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), cfg.KeepaliveIntervalMs)
}

func TestConfigFromMap_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := ConfigFromMap(map[string]any{
		"host":            "news.example.com",
		"port":            563,
		"max_connections": 1,
		"bogus":           "field",
	})
	require.Error(t, err)
}
