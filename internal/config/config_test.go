package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "data/route.json", cfg.DataFile)
	assert.Equal(t, time.Second, cfg.DefaultInterval)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.WatchData)
}

func TestLoadFromEnvOnly(t *testing.T) {
	t.Setenv("PORT", "8080")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "data/route.json", cfg.DataFile)
}

func TestLoadRequiresPort(t *testing.T) {
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfigFile(t, `
data_file: /srv/route.json
watch_data: false
static_dir: ./static
default_interval: 2s
allowed_origins:
  - http://localhost:3000
log:
  level: debug
  pretty: true
`)
	t.Setenv("PORT", "9090")
	t.Setenv("TRACKER_LOG_LEVEL", "warn")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/srv/route.json", cfg.DataFile)
	assert.False(t, cfg.WatchData)
	assert.Equal(t, "./static", cfg.StaticDir)
	assert.Equal(t, 2*time.Second, cfg.DefaultInterval)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "warn", cfg.Log.Level, "environment overrides the file")
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout, "defaults survive a partial file")
}

func TestLoadOriginsFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("TRACKER_ALLOWED_ORIGINS", "http://a.example,http://b.example")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
}

func TestLoadFileErrors(t *testing.T) {
	t.Setenv("PORT", "8080")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfigFile(t, "log: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		target error
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "port zero", modify: func(c *Config) { c.Port = 0 }, target: ErrInvalidConfig},
		{name: "port too large", modify: func(c *Config) { c.Port = 70000 }, target: ErrInvalidConfig},
		{name: "no data file", modify: func(c *Config) { c.DataFile = "" }, target: ErrInvalidConfig},
		{name: "unknown log level", modify: func(c *Config) { c.Log.Level = "verbose" }, target: ErrInvalidConfig},
		{name: "interval too short", modify: func(c *Config) { c.DefaultInterval = time.Millisecond }, target: ErrInvalidInterval},
		{name: "interval too long", modify: func(c *Config) { c.DefaultInterval = time.Hour }, target: ErrInvalidInterval},
		{name: "no shutdown timeout", modify: func(c *Config) { c.ShutdownTimeout = 0 }, target: ErrInvalidShutdownTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Port = 8080
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.target == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.target)
		})
	}
}
