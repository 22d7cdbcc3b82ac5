// Package store configures and opens the BadgerDB instances backing persisted
// datasets and the result cache.
package store

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Resource profiles understood by buildBadgerOptions.
const (
	ProfileIngestHeavy    = "Ingest-Heavy"
	ProfileSafeServing    = "Safe-Serving"
	ProfileCloudRunLowMem = "Cloud-Run-LowMem"
)

// Config holds the configuration for BadgerDB.
type Config struct {
	// DataDir is the directory under which BadgerDB keeps its files (in DataDir/badger).
	DataDir string

	// InMemory enables in-memory mode (useful for testing).
	InMemory bool

	// BlockCacheSize is the size of the block cache in bytes.
	BlockCacheSize int64

	// IndexCacheSize is the size of the index cache in bytes.
	IndexCacheSize int64

	// Compression enables ZSTD compression of SST blocks.
	Compression bool

	// SyncWrites enables synchronous writes.
	SyncWrites bool

	// MemTableSize is the size of the memtable in bytes. Zero keeps the badger default.
	MemTableSize int64

	// NumMemtables is the maximum number of memtables waiting to be flushed. Zero keeps the badger default.
	NumMemtables int

	// Profile specifies the resource profile. Defaults to Ingest-Heavy if empty.
	Profile string

	// ReadOnly enables read-only mode.
	ReadOnly bool

	// BypassLockGuard allows several processes to open the same directory.
	BypassLockGuard bool

	// Logger receives badger's internal log output. Nil silences badger.
	Logger *slog.Logger
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.DataDir == "" && !c.InMemory {
		return fmt.Errorf("DataDir must be specified when InMemory is false")
	}
	if c.BlockCacheSize <= 0 {
		return fmt.Errorf("BlockCacheSize must be positive, got %d", c.BlockCacheSize)
	}
	if c.IndexCacheSize <= 0 {
		return fmt.Errorf("IndexCacheSize must be positive, got %d", c.IndexCacheSize)
	}
	switch c.Profile {
	case "", ProfileIngestHeavy, ProfileSafeServing, ProfileCloudRunLowMem:
	default:
		return fmt.Errorf("unknown profile %q", c.Profile)
	}
	if c.InMemory && c.ReadOnly {
		return fmt.Errorf("ReadOnly cannot be combined with InMemory")
	}
	return nil
}

// DefaultConfig returns a serving configuration rooted at dataDir.
func DefaultConfig(dataDir string) *Config {
	return &Config{
		DataDir:        dataDir,
		BlockCacheSize: 256 << 20,
		IndexCacheSize: 128 << 20,
		Compression:    true,
		Profile:        ProfileSafeServing,
	}
}

// InMemoryConfig returns a configuration for a throwaway in-memory database.
func InMemoryConfig() *Config {
	cfg := DefaultConfig("")
	cfg.InMemory = true
	return cfg
}

// buildBadgerOptions converts Config to badger.Options based on Profile.
func buildBadgerOptions(cfg *Config) badger.Options {
	opts := badger.DefaultOptions(filepath.Join(cfg.DataDir, "badger"))
	if cfg.Logger != nil {
		opts.Logger = &slogAdapter{l: cfg.Logger.With("component", "badger")}
	} else {
		opts.Logger = nil
	}

	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(opts.Logger)
		return opts
	}

	// Writers never race on the same key with conflicting intent.
	opts.DetectConflicts = false
	opts.BypassLockGuard = cfg.BypassLockGuard
	opts.BloomFalsePositive = 0.01
	opts.ReadOnly = cfg.ReadOnly

	if cfg.Compression {
		opts.Compression = options.ZSTD
	} else {
		opts.Compression = options.None
	}

	switch cfg.Profile {
	case ProfileCloudRunLowMem:
		opts.ValueLogFileSize = 32 << 20
		opts.NumCompactors = 2
	case ProfileSafeServing:
		opts.ValueLogFileSize = 64 << 20
		// Badger v4 requires at least 2 compactors.
		opts.NumCompactors = 2
	default:
		opts.ValueLogFileSize = 1 << 30
		opts.NumCompactors = 4
		opts.CompactL0OnClose = true
	}

	opts.BlockCacheSize = cfg.BlockCacheSize
	opts.IndexCacheSize = cfg.IndexCacheSize
	opts.SyncWrites = cfg.SyncWrites

	if cfg.MemTableSize > 0 {
		opts.MemTableSize = cfg.MemTableSize
	}
	if cfg.NumMemtables > 0 {
		opts.NumMemtables = cfg.NumMemtables
	}
	return opts
}

// OpenBadgerDB validates cfg and opens a BadgerDB instance.
func OpenBadgerDB(cfg *Config) (*badger.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store configuration: %w", err)
	}
	db, err := badger.Open(buildBadgerOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DataDir, err)
	}
	return db, nil
}

// slogAdapter routes badger.Logger calls to slog.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Errorf(format string, args ...any) {
	a.l.Error(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Warningf(format string, args ...any) {
	a.l.Warn(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Infof(format string, args ...any) {
	a.l.Debug(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Debugf(format string, args ...any) {
	a.l.Debug(fmt.Sprintf(format, args...))
}
