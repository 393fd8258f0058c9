package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "database:\n  user: steam\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "steam", cfg.Database.User)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, CacheBackendPostgres, cfg.Cache.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.SuccessDelay)
	assert.Equal(t, time.Second, cfg.Fetch.FailureDelay)
	assert.Equal(t, 30, cfg.Fetch.MaxItemAgeDays)
	assert.Equal(t, "steam_news.xml", cfg.Feed.OutputPath)
	assert.Equal(t, 30, cfg.Feed.WindowDays)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.RabbitMQ.Enabled)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("STEAMNEWS_TEST_DB_PASSWORD", "hunter2")
	path := writeConfig(t, "database:\n  password: ${STEAMNEWS_TEST_DB_PASSWORD}\nfetch:\n  success_delay: 10ms\n  failure_delay: 2s\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "hunter2", cfg.Database.Password)
	assert.Equal(t, 10*time.Millisecond, cfg.Fetch.SuccessDelay)
	assert.Equal(t, 2*time.Second, cfg.Fetch.FailureDelay)
	assert.Contains(t, cfg.Database.DSN(), "password=hunter2")
}

func TestLoad_RejectsFailureDelayNotLonger(t *testing.T) {
	path := writeConfig(t, "fetch:\n  success_delay: 2s\n  failure_delay: 1s\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure_delay")
}

func TestLoad_RejectsUnknownCacheBackend(t *testing.T) {
	path := writeConfig(t, "cache:\n  backend: memcached\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memcached")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}
