package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	constants "nselfadmin/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, constants.DEFAULT_COLLABORATOR_URL, cfg.Collaborator.BaseURL)
	assert.Equal(t, constants.PROVIDER_CLI, cfg.Runtime.Provider)
	assert.Equal(t, time.Second, cfg.Runtime.CacheTTL)
	assert.Equal(t, 50.0, cfg.Runtime.StorageCapacityGB)
	assert.True(t, cfg.Realtime.Reconnect)

	for name, interval := range DefaultSourceIntervals {
		sc := cfg.Source(name)
		assert.True(t, sc.Enabled, name)
		assert.Equal(t, interval, sc.Interval, name)
	}
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `collaborator:
  base_url: http://admin.local:3021
  token: secret
runtime:
  provider: engine
  cache_ttl: 2s
sources:
  database:
    enabled: false
    interval: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "http://admin.local:3021", cfg.Collaborator.BaseURL)
	assert.Equal(t, "secret", cfg.Collaborator.Token)
	assert.Equal(t, constants.PROVIDER_ENGINE, cfg.Runtime.Provider)
	assert.Equal(t, 2*time.Second, cfg.Runtime.CacheTTL)

	db := cfg.Source(constants.SOURCE_DATABASE)
	assert.False(t, db.Enabled)
	assert.Equal(t, time.Minute, db.Interval)

	// Untouched sources keep their defaults.
	assert.Equal(t, constants.DEFAULT_SYSTEM_INTERVAL, cfg.Source(constants.SOURCE_SYSTEM).Interval)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("NSELFADMIN_SERVER_LISTEN", "0.0.0.0:9999")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Listen)
}

func TestLoadConfig_InvalidProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runtime:\n  provider: podman\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Sources[constants.SOURCE_CONTAINERS] = SourceConfig{Enabled: false, Interval: 20 * time.Second}
	cfg.Collaborator.Token = "tok"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.Collaborator.Token)
	assert.Equal(t, SourceConfig{Enabled: false, Interval: 20 * time.Second}, loaded.Source(constants.SOURCE_CONTAINERS))
	assert.Equal(t, cfg.Runtime, loaded.Runtime)
}
