package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv removes the variables for the duration of the test. t.Setenv
// alone is not enough: envconfig treats a set-but-empty variable as an
// override, not as absent.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "REDIS_URL", "PORT", "CONFIG_FILE", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis://127.0.0.1/", cfg.RedisURL)
	assert.Equal(t, 3030, cfg.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output)
}

func TestLoadFromEnv(t *testing.T) {
	unsetenv(t, "CONFIG_FILE")
	t.Setenv("REDIS_URL", "redis://cache.internal:6380/2")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis://cache.internal:6380/2", cfg.RedisURL)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadYAMLOverridesLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n  format: json\n"), 0o644))

	unsetenv(t, "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	// Keys missing from the file keep their environment defaults.
	assert.Equal(t, "stderr", cfg.Log.Output)
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
