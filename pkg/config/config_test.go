package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/store"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relpat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
data_dir: /srv/kg
cache:
  backend: badger
  lru_size: 8
analysis:
  workers: 4
  inversion_both_directions: true
server:
  warmup_schedule: "0 3 * * *"
store:
  profile: Cloud-Run-LowMem
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/srv/kg", cfg.DataDir)
	assert.Equal(t, "badger", cfg.Cache.Backend)
	assert.Equal(t, 8, cfg.Cache.LRUSize)
	assert.Equal(t, "./cache", cfg.Cache.Dir, "unset fields keep their defaults")
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.True(t, cfg.Analysis.InversionBothDirections)
	assert.Equal(t, "0 3 * * *", cfg.Server.WarmupSchedule)

	sc := cfg.StoreConfig("/srv/kg/fb15k")
	assert.Equal(t, store.ProfileCloudRunLowMem, sc.Profile)
	assert.Equal(t, int64(256<<20), sc.BlockCacheSize)
}

func TestLoadEmptyPathAndEmptyFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "cache:\n  backnd: file\n"))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RELPAT_DATA_DIR", "/tmp/kg")
	t.Setenv("RELPAT_CACHE_BACKEND", "none")
	t.Setenv("RELPAT_ANALYSIS_WORKERS", "3")
	t.Setenv("RELPAT_ANALYSIS_INVERSION_BOTH_DIRECTIONS", "yes")
	t.Setenv("RELPAT_STORE_BLOCK_CACHE_MB", "64")
	t.Setenv("PORT", "9090")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/tmp/kg", cfg.DataDir)
	assert.Equal(t, "none", cfg.Cache.Backend)
	assert.Equal(t, 3, cfg.Analysis.Workers)
	assert.True(t, cfg.Analysis.InversionBothDirections)
	assert.Equal(t, int64(64), cfg.Store.BlockCacheMB)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestApplyEnvAddrWinsOverPort(t *testing.T) {
	t.Setenv("RELPAT_SERVER_ADDR", "127.0.0.1:7000")
	t.Setenv("PORT", "9090")
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }},
		{"file backend without dir", func(c *Config) { c.Cache.Dir = "" }},
		{"negative lru size", func(c *Config) { c.Cache.LRUSize = -1 }},
		{"negative workers", func(c *Config) { c.Analysis.Workers = -2 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"unknown profile", func(c *Config) { c.Store.Profile = "Turbo" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), errors.ErrInvalidInput)
		})
	}

	cfg := DefaultConfig()
	cfg.Cache.Backend = "none"
	cfg.Cache.Dir = ""
	assert.NoError(t, cfg.Validate())
}

func TestSlogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}
