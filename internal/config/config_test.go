package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjust-consumer/internal/config"
)

func TestParseEventTokens(t *testing.T) {
	tokens, err := config.ParseEventTokens("purchase=abc123, signup = def456")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"purchase": "abc123", "signup": "def456"}, tokens)

	empty, err := config.ParseEventTokens("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, bad := range []string{"purchase", "=abc123", "purchase=", "a=b,,c=d"} {
		_, err := config.ParseEventTokens(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("ADJUST_SDK_KEY", "sdk-key")
	t.Setenv("ADJUST_ENVIRONMENT", "Production")
	t.Setenv("ADJUST_ENABLED_INSTALL_TYPES", "organic,paid")
	t.Setenv("ADJUST_REDACTED", "false")
	t.Setenv("ADJUST_EVENT_TOKENS", "purchase=abc123")
	t.Setenv("ADJUST_REQUEST_TIMEOUT", "3s")
	t.Setenv("INSTALL_TYPE", "paid")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sdk-key", cfg.Adjust.SDKKey)
	assert.Equal(t, "Production", cfg.Adjust.Environment)
	assert.Equal(t, "organic,paid", cfg.Adjust.EnabledInstallTypes)
	assert.False(t, cfg.Adjust.Redacted)
	assert.Equal(t, map[string]string{"purchase": "abc123"}, cfg.Adjust.EventTokens)
	assert.Equal(t, 3*time.Second, cfg.Adjust.RequestTimeout)
	assert.Equal(t, "paid", cfg.Host.InstallType)
	assert.Equal(t, "localhost:6380", cfg.Redis.GetRedisAddr())
	assert.Equal(t, int64(10000), cfg.Redis.DLQMaxLen)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("ADJUST_REDACTED", "sometimes")

	_, err := config.Load()
	assert.Error(t, err)
}
