package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/duynguyendang/relpat/internal/manager"
	"github.com/duynguyendang/relpat/pkg/analysis"
	"github.com/duynguyendang/relpat/pkg/cache"
	"github.com/duynguyendang/relpat/pkg/service"
)

// openCache builds the configured result cache. The returned close function
// is never nil.
func (a *app) openCache() (analysis.ResultCache, func(), error) {
	backend, err := cache.ParseBackend(a.cfg.Cache.Backend)
	if err != nil {
		return nil, nil, err
	}

	var (
		disk    cache.Store
		closeFn = func() {}
	)
	switch backend {
	case cache.BackendNone:
		a.logger.Debug("result cache disabled")
		return nil, closeFn, nil
	case cache.BackendFile:
		disk = cache.NewFileCache(a.cfg.Cache.Dir)
	case cache.BackendBadger:
		if err := os.MkdirAll(a.cfg.Cache.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating cache directory: %w", err)
		}
		sc := a.cfg.StoreConfig(a.cfg.Cache.Dir)
		sc.Logger = a.logger
		bc, err := cache.OpenBadgerCache(sc)
		if err != nil {
			return nil, nil, fmt.Errorf("opening badger cache: %w", err)
		}
		disk = bc
		closeFn = func() {
			if err := bc.Close(); err != nil {
				a.logger.Warn("closing badger cache", "error", err)
			}
		}
	}

	if a.cfg.Cache.LRUSize == 0 {
		return disk, closeFn, nil
	}
	mem, err := cache.NewMemoryCache(a.cfg.Cache.LRUSize, disk)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return mem, closeFn, nil
}

type serviceOptions struct {
	baseDir  string
	readOnly bool
	force    bool
	progress analysis.Progress
}

// newService wires dataset manager, cache and classifier into an AnalysisService.
func (a *app) newService(opts serviceOptions) (*service.AnalysisService, func(), error) {
	resultCache, closeCache, err := a.openCache()
	if err != nil {
		return nil, nil, err
	}
	baseDir := opts.baseDir
	if baseDir == "" {
		baseDir = a.cfg.DataDir
	}
	mgr := manager.NewDatasetManager(manager.Config{
		BaseDir:      baseDir,
		ReadOnly:     opts.readOnly,
		Profile:      a.cfg.Store.Profile,
		BlockCacheMB: a.cfg.Store.BlockCacheMB,
		IndexCacheMB: a.cfg.Store.IndexCacheMB,
	})
	classifier := analysis.NewClassifier(analysis.Config{
		Cache:                   resultCache,
		Force:                   opts.force,
		Workers:                 a.cfg.Analysis.Workers,
		InversionBothDirections: a.cfg.Analysis.InversionBothDirections,
		Logger:                  a.logger,
		Progress:                opts.progress,
	})
	svc := service.NewAnalysisService(mgr, classifier, a.logger)
	cleanup := func() {
		svc.Stop()
		mgr.CloseAll()
		closeCache()
	}
	return svc, cleanup, nil
}

// resolveDataset maps a command argument to (data root, dataset id). A path to
// a dataset directory is opened from its parent; anything else is an id under
// the configured data directory.
func (a *app) resolveDataset(arg string) (string, string) {
	if strings.ContainsAny(arg, `/\`) {
		dir := filepath.Clean(arg)
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return filepath.Dir(dir), filepath.Base(dir)
		}
	}
	return a.cfg.DataDir, arg
}

// splitParts parses a comma-separated parts flag.
func splitParts(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
