package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("TASTEOS_TEST", filepath.Join(t.TempDir(), "missing.yaml"))
	// A named config file that does not exist is tolerated; defaults apply.
	require.NoError(t, err)

	assert.Equal(t, "tasteos", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 60*time.Second, cfg.Cook.ProcessingTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cook.DoneTTL)
	assert.Equal(t, 3*time.Minute, cfg.Cook.ManualOverrideWindow)
	assert.Equal(t, 15*time.Second, cfg.Cook.KeepAliveInterval)
	assert.Equal(t, 30*time.Second, cfg.Cook.DoneGrace)
	assert.Equal(t, 20, cfg.Cook.EventWindow)
	assert.Equal(t, 50, cfg.Cook.RecentLimit)
	assert.Equal(t, 3, cfg.Cook.MutationRetries)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "tasteos_session_updates", cfg.AMQP.Queue)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
  debug: true
redis:
  url: redis://localhost:6379/1
cook:
  manual_override_window: 5m
  event_window: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig("TASTEOS_TEST", path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
	assert.Equal(t, 5*time.Minute, cfg.Cook.ManualOverrideWindow)
	assert.Equal(t, 10, cfg.Cook.EventWindow)
	// Untouched keys keep their defaults.
	assert.Equal(t, 24*time.Hour, cfg.Cook.DoneTTL)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TASTEOS_TEST_SERVER_PORT", "7070")
	t.Setenv("TASTEOS_TEST_DATABASE_URL", "postgres://env:5432/tasteos")

	cfg, err := LoadConfig("TASTEOS_TEST", "")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres://env:5432/tasteos", cfg.Database.URL)
}

func TestValidateConfig(t *testing.T) {
	cfg, err := LoadConfig("TASTEOS_TEST", "")
	require.NoError(t, err)

	cfg.Server.Port = 0
	assert.Error(t, ValidateConfig(cfg))

	cfg.Server.Port = 8080
	cfg.Cook.ProcessingTTL = 0
	assert.Error(t, ValidateConfig(cfg))

	cfg.Cook.ProcessingTTL = time.Minute
	cfg.AMQP.URL = "amqp://localhost"
	cfg.AMQP.Queue = ""
	assert.Error(t, ValidateConfig(cfg))

	cfg.AMQP.Queue = "updates"
	assert.NoError(t, ValidateConfig(cfg))
}
