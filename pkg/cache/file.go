package cache

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/kg"
)

// FileCache stores each table as a zstd-compressed TSV file at
// <root>/<dataset>/relation_patterns_<key>.tsv.zst.
type FileCache struct {
	root string
}

// NewFileCache creates a FileCache rooted at dir. The directory is created lazily.
func NewFileCache(dir string) *FileCache {
	return &FileCache{root: dir}
}

// Path returns the file an entry is stored in.
func (c *FileCache) Path(datasetName, key string) string {
	return filepath.Join(c.root, datasetDir(datasetName), entryName(key))
}

func (c *FileCache) Get(ctx context.Context, datasetName, key string) ([]kg.PatternMatch, error) {
	f, err := os.Open(c.Path(datasetName, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed table: %w", err)
	}
	defer zr.Close()
	return kg.ReadTable(zr)
}

// Put writes the entry to a temporary file and renames it into place, so readers
// never observe a partial table. Concurrent writers of one key leave the last file.
func (c *FileCache) Put(ctx context.Context, datasetName, key string, matches []kg.PatternMatch) (err error) {
	path := c.Path(datasetName, key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw, err := zstd.NewWriter(tmp)
	if err != nil {
		return err
	}
	if err := kg.WriteTable(zw, matches); err != nil {
		zw.Close()
		return fmt.Errorf("failed to write table: %w", err)
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
