package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
debug = true
max_depth = 12

[resync]
delay = "50ms"

[cache]
backend = "redis"
redis_addr = "cache:6379"

[server]
addr = ":9000"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 12, cfg.MaxDepth)
	assert.Equal(t, MaxSlots, cfg.MaxSlots)
	assert.Equal(t, 3, cfg.Resync.Attempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Resync.Delay.Duration)
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "cache:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.Duration)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Empty(t, cfg.Undecoded)
}

func TestLoadReportsUndecodedKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, "max_dept = 3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"max_dept"}, cfg.Undecoded)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "max_depth = \n"},
		{"wrong type", `max_depth = "deep"`},
		{"bad duration", "[resync]\ndelay = \"soon\"\n"},
		{"too many slots", "max_slots = 81\n"},
		{"zero slots", "max_slots = 0\n"},
		{"zero depth", "max_depth = 0\n"},
		{"negative attempts", "[resync]\nattempts = -1\n"},
		{"unknown backend", "[cache]\nbackend = \"s3\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "error %v should wrap ErrInvalid", err)
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "friendlypipe", "config.toml"), Path())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/alice")
	assert.Equal(t, filepath.Join("/home/alice", ".config", "friendlypipe", "config.toml"), Path())
}

func TestLoadEmptyPathUsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "friendlypipe"), 0o755))
	require.NoError(t, os.WriteFile(Path(), []byte("max_slots = 8\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxSlots)
}
