package cache

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"

	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/kg"
	"github.com/duynguyendang/relpat/pkg/store"
)

// BadgerCache stores tables in a BadgerDB under <dataset>/relation_patterns_<key>.tsv.zst,
// compressed like the file cache.
type BadgerCache struct {
	db  *badger.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// OpenBadgerCache opens (or creates) a cache database.
func OpenBadgerCache(cfg *store.Config) (*BadgerCache, error) {
	db, err := store.OpenBadgerDB(cfg)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BadgerCache{db: db, enc: enc, dec: dec}, nil
}

// Close releases the database.
func (c *BadgerCache) Close() error {
	c.enc.Close()
	c.dec.Close()
	return c.db.Close()
}

func badgerKey(datasetName, key string) []byte {
	return []byte(datasetDir(datasetName) + "/" + entryName(key))
}

func (c *BadgerCache) Get(ctx context.Context, datasetName, key string) ([]kg.PatternMatch, error) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(datasetName, key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	data, err := c.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress table: %w", err)
	}
	return kg.ReadTable(bytes.NewReader(data))
}

func (c *BadgerCache) Put(ctx context.Context, datasetName, key string, matches []kg.PatternMatch) error {
	var buf bytes.Buffer
	if err := kg.WriteTable(&buf, matches); err != nil {
		return err
	}
	value := c.enc.EncodeAll(buf.Bytes(), nil)
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(datasetName, key), value)
	})
}
