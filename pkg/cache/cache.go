// Package cache stores computed relational pattern tables keyed by dataset name
// and triple set hash.
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/kg"
)

// ErrCacheMiss is returned by Get when no entry exists.
var ErrCacheMiss = fmt.Errorf("%w: cache miss", errors.ErrNotFound)

// Store is implemented by every cache backend.
type Store interface {
	Get(ctx context.Context, datasetName, key string) ([]kg.PatternMatch, error)
	Put(ctx context.Context, datasetName, key string, matches []kg.PatternMatch) error
}

// Backend names a cache implementation in configuration.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendBadger Backend = "badger"
	BackendNone   Backend = "none"
)

// ParseBackend validates a backend name. The empty string selects BackendFile.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(s)); b {
	case "":
		return BackendFile, nil
	case BackendFile, BackendBadger, BackendNone:
		return b, nil
	}
	return "", errors.Invalidf("unknown cache backend %q (want file, badger or none)", s)
}

// entryName is the file name of an entry.
func entryName(key string) string {
	return "relation_patterns_" + key + ".tsv.zst"
}

// datasetDir normalizes a dataset name into a single path segment.
func datasetDir(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
