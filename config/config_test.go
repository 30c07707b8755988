package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatroom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRelayDefaults(t *testing.T) {
	cfg, err := LoadRelay(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRelay(), cfg)
	assert.Zero(t, cfg.RateLimit)
	assert.Empty(t, cfg.RedisAddr)
}

func TestRelayFileThenFlags(t *testing.T) {
	path := writeFile(t, `
wsListenAddr: ":9999"
logLevel: debug
rateLimit: 5
rateWindow: 10s
redisAddr: "localhost:6379"
`)
	cfg, err := LoadRelay([]string{"--log-level", "warn", "--config", path, "--rate-limit=7"})
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.WSListenAddr)
	assert.Equal(t, ":8080", cfg.APIListenAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7, cfg.RateLimit)
	assert.Equal(t, 10*time.Second, cfg.RateWindow)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestClientFlags(t *testing.T) {
	path := writeFile(t, "url: ws://example.org/ws\nheight: 40\n")
	cfg, err := LoadClient([]string{"-c", path, "--show-times"})
	require.NoError(t, err)

	assert.Equal(t, "ws://example.org/ws", cfg.URL)
	assert.Equal(t, 40, cfg.Height)
	assert.True(t, cfg.ShowTimes)
	assert.Equal(t, 2, cfg.ScrollThreshold)
}

func TestConfigFileErrors(t *testing.T) {
	_, err := LoadRelay([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorIs(t, err, ErrConfigFile)

	path := writeFile(t, "rateLimit: [")
	_, err = LoadClient([]string{"--config", path})
	assert.ErrorIs(t, err, ErrConfigFile)

	_, err = LoadRelay([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	t.Setenv(EnvVar, "")
	buf := &bytes.Buffer{}

	logger, err := NewLogger(buf, "warn")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	_, err = NewLogger(buf, "loud")
	assert.ErrorIs(t, err, ErrLogLevel)

	t.Setenv(EnvVar, EnvDevelopment)
	logger, err = NewLogger(buf, "loud")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}
