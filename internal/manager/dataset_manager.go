package manager

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/dataset"
	"github.com/duynguyendang/relpat/pkg/store"
)

// DatasetKind tells how a dataset directory is stored.
type DatasetKind string

const (
	KindTSV    DatasetKind = "tsv"
	KindBadger DatasetKind = "badger"
)

// DatasetInfo represents the dataset information exposed by the API.
type DatasetInfo struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Kind        DatasetKind `json:"kind"`
}

const (
	MaxOpenDatasets = 10
	DatasetListTTL  = 1 * time.Minute
)

// Config configures a DatasetManager.
type Config struct {
	// BaseDir holds one directory per dataset.
	BaseDir string
	// MaxOpen bounds the number of datasets kept open; <= 0 uses MaxOpenDatasets.
	MaxOpen int
	// ReadOnly opens persisted datasets read-only.
	ReadOnly bool
	// Profile, BlockCacheMB and IndexCacheMB tune persisted datasets.
	Profile      string
	BlockCacheMB int64
	IndexCacheMB int64
}

// handle counts the callers using an open dataset. An evicted dataset is
// closed when its last caller releases it.
type handle struct {
	ds      dataset.Dataset
	mu      sync.Mutex
	refs    int
	evicted bool
}

// acquire registers a caller; it fails once the handle has been evicted.
func (h *handle) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.evicted {
		return false
	}
	h.refs++
	return true
}

func (h *handle) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs--
	if h.evicted && h.refs == 0 {
		closeDataset(h.ds)
	}
}

func (h *handle) evict() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.evicted = true
	if h.refs == 0 {
		closeDataset(h.ds)
	}
}

func closeDataset(ds dataset.Dataset) {
	if c, ok := ds.(io.Closer); ok {
		_ = c.Close()
	}
}

// DatasetManager opens datasets by id and keeps recently used ones open.
type DatasetManager struct {
	cfg        Config
	datasets   *lru.Cache[string, *handle]
	mu         sync.RWMutex
	cachedList []DatasetInfo
	lastList   time.Time
}

// NewDatasetManager creates a new DatasetManager.
func NewDatasetManager(cfg Config) *DatasetManager {
	size := cfg.MaxOpen
	if size <= 0 {
		size = MaxOpenDatasets
	}
	// Evicted persisted datasets release their database once no caller holds them.
	cache, _ := lru.NewWithEvict[string, *handle](size, func(_ string, h *handle) {
		h.evict()
	})
	return &DatasetManager{cfg: cfg, datasets: cache}
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return errors.Invalidf("invalid dataset id %q", id)
	}
	return nil
}

// Kind reports how dir is stored, or false if it holds no dataset.
func Kind(dir string) (DatasetKind, bool) {
	if fi, err := os.Stat(filepath.Join(dir, "badger")); err == nil && fi.IsDir() {
		return KindBadger, true
	}
	if dataset.IsTSVDir(dir) {
		return KindTSV, true
	}
	return "", false
}

// Acquire returns the dataset with the given id, opening it if necessary.
// The dataset stays open until release is called, even if it is evicted meanwhile.
func (m *DatasetManager) Acquire(id string) (ds dataset.Dataset, release func(), err error) {
	if err := validateID(id); err != nil {
		return nil, nil, err
	}
	if h, ok := m.datasets.Get(id); ok && h.acquire() {
		return h.ds, h.release, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check under lock
	if h, ok := m.datasets.Get(id); ok && h.acquire() {
		return h.ds, h.release, nil
	}

	dir := filepath.Join(m.cfg.BaseDir, id)
	kind, ok := Kind(dir)
	if !ok {
		return nil, nil, m.notFound(id)
	}
	ds, err = Open(dir, kind, m.storeConfig(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset %s: %w", id, err)
	}
	h := &handle{ds: ds, refs: 1}
	m.datasets.Add(id, h)
	return ds, h.release, nil
}

// Open opens the dataset in dir.
func Open(dir string, kind DatasetKind, cfg *store.Config) (dataset.Dataset, error) {
	switch kind {
	case KindBadger:
		return dataset.OpenBadger(cfg)
	case KindTSV:
		return dataset.LoadTSV(dir)
	}
	return nil, errors.Invalidf("unknown dataset kind %q", kind)
}

func (m *DatasetManager) storeConfig(dir string) *store.Config {
	cfg := store.DefaultConfig(dir)
	cfg.ReadOnly = m.cfg.ReadOnly
	cfg.BypassLockGuard = m.cfg.ReadOnly
	if m.cfg.Profile != "" {
		cfg.Profile = m.cfg.Profile
	}
	if m.cfg.BlockCacheMB > 0 {
		cfg.BlockCacheSize = m.cfg.BlockCacheMB << 20
	}
	if m.cfg.IndexCacheMB > 0 {
		cfg.IndexCacheSize = m.cfg.IndexCacheMB << 20
	}
	return cfg
}

// notFound builds a not-found error naming the closest known id; m.mu must be held.
func (m *DatasetManager) notFound(id string) error {
	infos, err := m.scan()
	if err == nil {
		ids := make([]string, len(infos))
		for i, info := range infos {
			ids[i] = info.ID
		}
		if s, ok := dataset.Suggest(id, ids); ok {
			return errors.NotFoundf("dataset %q (did you mean %q?)", id, s)
		}
	}
	return errors.NotFoundf("dataset %q", id)
}

// List returns the available datasets, cached for DatasetListTTL.
func (m *DatasetManager) List() ([]DatasetInfo, error) {
	m.mu.RLock()
	if time.Since(m.lastList) < DatasetListTTL && m.cachedList != nil {
		list := make([]DatasetInfo, len(m.cachedList))
		copy(list, m.cachedList)
		m.mu.RUnlock()
		return list, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check
	if time.Since(m.lastList) < DatasetListTTL && m.cachedList != nil {
		list := make([]DatasetInfo, len(m.cachedList))
		copy(list, m.cachedList)
		return list, nil
	}

	infos, err := m.scan()
	if err != nil {
		return nil, err
	}
	m.cachedList = infos
	m.lastList = time.Now()
	list := make([]DatasetInfo, len(infos))
	copy(list, infos)
	return list, nil
}

func (m *DatasetManager) scan() ([]DatasetInfo, error) {
	entries, err := os.ReadDir(m.cfg.BaseDir)
	if err != nil {
		return nil, err
	}
	infos := []DatasetInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		dir := filepath.Join(m.cfg.BaseDir, id)
		kind, ok := Kind(dir)
		if !ok {
			continue
		}
		info := DatasetInfo{ID: id, Name: id, Kind: kind}
		// Try to read dataset.yaml
		if meta, err := dataset.LoadMetadata(filepath.Join(dir, dataset.MetadataFile)); err == nil {
			if meta.Name != "" {
				info.Name = meta.Name
			}
			info.Description = meta.Description
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CloseAll evicts all open datasets. Datasets still acquired close on their last release.
func (m *DatasetManager) CloseAll() {
	m.datasets.Purge()
}
