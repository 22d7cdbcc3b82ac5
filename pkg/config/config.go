// Package config loads relpat application settings from a YAML file with
// RELPAT_* environment overrides.
//
// Precedence is defaults, then the file, then the environment:
//
//	cfg, err := config.Load("relpat.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	cfg.ApplyEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/duynguyendang/relpat/pkg/cache"
	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/store"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RELPAT_"

// Config is the application configuration.
type Config struct {
	// DataDir holds one directory per dataset.
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
	Cache    CacheConfig    `yaml:"cache"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
}

// CacheConfig selects where classification results are kept.
type CacheConfig struct {
	Dir     string `yaml:"dir"`
	Backend string `yaml:"backend"`
	// LRUSize is the number of tables kept in memory in front of the backend; 0 disables it.
	LRUSize int `yaml:"lru_size"`
}

// AnalysisConfig tunes the classifier.
type AnalysisConfig struct {
	// Workers bounds concurrent composition evaluation; 0 uses GOMAXPROCS.
	Workers                 int  `yaml:"workers"`
	InversionBothDirections bool `yaml:"inversion_both_directions"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// WarmupSchedule is a standard cron expression; empty disables scheduled warm-up.
	WarmupSchedule string `yaml:"warmup_schedule"`
}

// StoreConfig tunes BadgerDB-backed datasets and caches.
type StoreConfig struct {
	Profile      string `yaml:"profile"`
	BlockCacheMB int64  `yaml:"block_cache_mb"`
	IndexCacheMB int64  `yaml:"index_cache_mb"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  "./data",
		LogLevel: "info",
		Cache: CacheConfig{
			Dir:     "./cache",
			Backend: string(cache.BackendFile),
			LRUSize: 64,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Store: StoreConfig{
			Profile:      store.ProfileSafeServing,
			BlockCacheMB: 256,
			IndexCacheMB: 128,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Invalidf("error decoding YAML in %s: %v", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from RELPAT_* environment variables.
func (c *Config) ApplyEnv() {
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.Cache.Dir = getEnv("CACHE_DIR", c.Cache.Dir)
	c.Cache.Backend = getEnv("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.LRUSize = getEnvInt("CACHE_LRU_SIZE", c.Cache.LRUSize)

	c.Analysis.Workers = getEnvInt("ANALYSIS_WORKERS", c.Analysis.Workers)
	c.Analysis.InversionBothDirections = getEnvBool("ANALYSIS_INVERSION_BOTH_DIRECTIONS", c.Analysis.InversionBothDirections)

	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	if port := os.Getenv("PORT"); port != "" && os.Getenv(EnvPrefix+"SERVER_ADDR") == "" {
		c.Server.Addr = ":" + port
	}
	c.Server.WarmupSchedule = getEnv("SERVER_WARMUP_SCHEDULE", c.Server.WarmupSchedule)

	c.Store.Profile = getEnv("STORE_PROFILE", c.Store.Profile)
	c.Store.BlockCacheMB = int64(getEnvInt("STORE_BLOCK_CACHE_MB", int(c.Store.BlockCacheMB)))
	c.Store.IndexCacheMB = int64(getEnvInt("STORE_INDEX_CACHE_MB", int(c.Store.IndexCacheMB)))
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.Invalidf("data_dir must be set")
	}
	backend, err := cache.ParseBackend(c.Cache.Backend)
	if err != nil {
		return err
	}
	if backend != cache.BackendNone && c.Cache.Dir == "" {
		return errors.Invalidf("cache.dir must be set for the %s backend", backend)
	}
	if c.Cache.LRUSize < 0 {
		return errors.Invalidf("cache.lru_size must not be negative, got %d", c.Cache.LRUSize)
	}
	if c.Analysis.Workers < 0 {
		return errors.Invalidf("analysis.workers must not be negative, got %d", c.Analysis.Workers)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	sc := c.StoreConfig(filepath.Join(c.DataDir, "_validate"))
	if err := sc.Validate(); err != nil {
		return errors.Invalidf("store: %v", err)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, errors.Invalidf("log_level: %v", err)
	}
	return level, nil
}

// StoreConfig returns the BadgerDB configuration for a database rooted at dir.
func (c *Config) StoreConfig(dir string) *store.Config {
	sc := store.DefaultConfig(dir)
	if c.Store.Profile != "" {
		sc.Profile = c.Store.Profile
	}
	if c.Store.BlockCacheMB > 0 {
		sc.BlockCacheSize = c.Store.BlockCacheMB << 20
	}
	if c.Store.IndexCacheMB > 0 {
		sc.IndexCacheSize = c.Store.IndexCacheMB << 20
	}
	return sc
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{DataDir: %s, Cache: %s:%s, Workers: %d, Addr: %s}",
		c.DataDir, c.Cache.Backend, c.Cache.Dir, c.Analysis.Workers, c.Server.Addr)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
