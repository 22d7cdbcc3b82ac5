package cache

import (
	"context"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/duynguyendang/relpat/pkg/kg"
)

// DefaultMemorySize is the number of tables a MemoryCache keeps by default.
const DefaultMemorySize = 64

// MemoryCache keeps recently used tables in an LRU in front of an optional
// backing store. Reads that miss the LRU fall through and are remembered.
type MemoryCache struct {
	entries *lru.Cache[string, []kg.PatternMatch]
	next    Store
}

// NewMemoryCache creates a MemoryCache holding up to size tables. next may be nil.
func NewMemoryCache(size int, next Store) (*MemoryCache, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	entries, err := lru.New[string, []kg.PatternMatch](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{entries: entries, next: next}, nil
}

func memoryKey(datasetName, key string) string {
	return datasetDir(datasetName) + "/" + key
}

func (c *MemoryCache) Get(ctx context.Context, datasetName, key string) ([]kg.PatternMatch, error) {
	k := memoryKey(datasetName, key)
	if m, ok := c.entries.Get(k); ok {
		return slices.Clone(m), nil
	}
	if c.next == nil {
		return nil, ErrCacheMiss
	}
	m, err := c.next.Get(ctx, datasetName, key)
	if err != nil {
		return nil, err
	}
	c.entries.Add(k, slices.Clone(m))
	return m, nil
}

func (c *MemoryCache) Put(ctx context.Context, datasetName, key string, matches []kg.PatternMatch) error {
	c.entries.Add(memoryKey(datasetName, key), slices.Clone(matches))
	if c.next == nil {
		return nil
	}
	return c.next.Put(ctx, datasetName, key, matches)
}

// Len returns the number of tables held in memory.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}
