package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults verifies an empty viper yields the built-in defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	d := Defaults()
	assert.Equal(t, d.Cache, cfg.Cache)
	assert.Equal(t, d.Log, cfg.Log)
	assert.True(t, cfg.Plugins.Enabled)
	assert.Equal(t, "wasm", cfg.Plugins.Loader)
	assert.Empty(t, cfg.Plugins.AutoLoad)
	assert.Empty(t, cfg.Plugins.SearchPaths)
}

// TestLoadFile verifies values from a config file override defaults.
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `plugins:
  enabled: true
  auto_load: [session, "*format"]
  search_paths: [/opt/plugins]
  loader: native
cache:
  location: temp
  ttl: 90m
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"session", "*format"}, cfg.Plugins.AutoLoad)
	assert.Equal(t, []string{"/opt/plugins"}, cfg.Plugins.SearchPaths)
	assert.Equal(t, "native", cfg.Plugins.Loader)
	assert.Equal(t, "temp", cfg.Cache.Location)
	assert.Equal(t, 90*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "human", cfg.Log.Format, "unset keys keep their default")
}

// TestLoadEnvOverride verifies GODRACONIS_ variables take precedence.
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GODRACONIS_PLUGINS_ENABLED", "false")
	t.Setenv("GODRACONIS_CACHE_IGNORE", "true")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.False(t, cfg.Plugins.Enabled)
	assert.True(t, cfg.Cache.Ignore)
}

// TestWriteDefaultRoundTrip verifies the generated file loads back to the defaults.
func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefault(path))

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, Defaults().Cache, cfg.Cache)
	assert.Equal(t, Defaults().Log, cfg.Log)
	assert.Equal(t, Defaults().Plugins.Loader, cfg.Plugins.Loader)
	assert.True(t, cfg.Plugins.Enabled)
}

// TestLoadMissingFile verifies an explicitly configured but absent file is an error.
func TestLoadMissingFile(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

// TestLoadNoFileFound verifies a search that finds no config file falls back to defaults.
func TestLoadNoFileFound(t *testing.T) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(t.TempDir())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Defaults().Cache.Location, cfg.Cache.Location)
}

// TestInitializeMissingExplicitFile verifies --config pointing at a missing file fails.
func TestInitializeMissingExplicitFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Initialize(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
