package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FICS_HOST", "FICS_PORT", "FICS_USERNAME", "FICS_PASSWORD", "FICS_INTERFACE",
		"FICS_DIAL_TIMEOUT", "FICS_LOGIN_TIMEOUT", "FICS_COMMAND_TIMEOUT", "FICS_OBSERVE",
		"LOG_LEVEL", "LOG_FORMAT", "LOG_TO_CONSOLE", "LOG_TO_FILE", "LOG_FILE", "LOG_CALLER",
		"REDIS_URL", "DATABASE_URL", "EVENT_QUEUE_SIZE", "MESSAGES_DIR",
		"UPLINK_MODE", "UPLINK_BASE_URL", "UPLINK_WS_URL", "UPLINK_TOKEN", "UPLINK_TIMEOUT",
		"UPLINK_RETRY", "UPLINK_MAX_RECONNECT", "UPLINK_DRYRUN",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "freechess.org:5000", cfg.FICS.Address())
	assert.Equal(t, "guest", cfg.FICS.Username)
	assert.True(t, cfg.FICS.IsGuest())
	assert.Equal(t, "cheese-fics", cfg.FICS.Interface)
	assert.Equal(t, 30*time.Second, cfg.FICS.LoginTimeout)
	assert.Equal(t, 30*time.Second, cfg.FICS.CommandTimeout)
	assert.Equal(t, 10*time.Second, cfg.FICS.DialTimeout)
	assert.Equal(t, 256, cfg.EventQueueSize)
	assert.Equal(t, "legacy", cfg.Log.Format)
	assert.True(t, cfg.Log.ToConsole)
	assert.False(t, cfg.Uplink.Enabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FICS_HOST", " localhost ")
	t.Setenv("FICS_PORT", "5001")
	t.Setenv("FICS_USERNAME", "kapu")
	t.Setenv("FICS_PASSWORD", "pw")
	t.Setenv("FICS_LOGIN_TIMEOUT", "5s")
	t.Setenv("FICS_OBSERVE", "42")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("UPLINK_MODE", "http")
	t.Setenv("UPLINK_BASE_URL", "http://ui.local/hook/")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:5001", cfg.FICS.Address())
	assert.False(t, cfg.FICS.IsGuest())
	assert.Equal(t, 5*time.Second, cfg.FICS.LoginTimeout)
	assert.Equal(t, 42, cfg.FICS.Observe)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "http://ui.local/hook", cfg.Uplink.BaseURL)
	assert.True(t, cfg.Uplink.Enabled())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ficswatch.yaml")
	yaml := "fics:\n  host: fics.example\n  port: 23\n  observe: 7\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("FICS_PORT", "5000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fics.example", cfg.FICS.Host)
	assert.Equal(t, 5000, cfg.FICS.Port)
	assert.Equal(t, 7, cfg.FICS.Observe)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingFileFallsBackToEnv(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "freechess.org", cfg.FICS.Host)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"port":        func(c *Config) { c.FICS.Port = 70000 },
		"timeout":     func(c *Config) { c.FICS.CommandTimeout = 0 },
		"observe":     func(c *Config) { c.FICS.Observe = -1 },
		"queue":       func(c *Config) { c.EventQueueSize = 0 },
		"format":      func(c *Config) { c.Log.Format = "xml" },
		"mode":        func(c *Config) { c.Uplink.Mode = "smoke"; c.Uplink.BaseURL = "http://x" },
		"auto halves": func(c *Config) { c.Uplink.Mode = "auto"; c.Uplink.WSURL = "ws://x" },
		"ws url":      func(c *Config) { c.Uplink.Mode = "ws"; c.Uplink.BaseURL = "http://x" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load("")
			require.NoError(t, err)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
