// Package ingest copies labeled or in-memory datasets into persisted BadgerDB datasets.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/duynguyendang/relpat/pkg/dataset"
	"github.com/duynguyendang/relpat/pkg/store"
)

const MaxWorkers = 8

// Labeled is implemented by datasets that expose their full label tables.
type Labeled interface {
	EntityLabels() []string
	RelationLabels() []string
}

// Options controls Run.
type Options struct {
	// Name overrides the source dataset name.
	Name        string
	Description string
	// Parts restricts the copied parts; empty copies all.
	Parts  []string
	Logger *slog.Logger
}

// Result summarizes a finished ingestion.
type Result struct {
	Name     string
	Counts   map[string]int
	Duration time.Duration
}

// Run copies src into dst. Parts are written concurrently; each part keeps
// its triple order, duplicates included.
func Run(ctx context.Context, src dataset.Dataset, dst *dataset.BadgerDataset, opts Options) (*Result, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parts, err := dataset.NormalizeParts(src, opts.Parts)
	if err != nil {
		return nil, err
	}
	name := opts.Name
	if name == "" {
		name = src.Name()
	}

	// Pass 1: dataset info and labels.
	logger.Info("ingesting dataset", "name", name, "parts", parts)
	if err := dst.SetInfo(name, opts.Description, src.NumEntities(), src.NumRelations()); err != nil {
		return nil, fmt.Errorf("failed to store dataset info: %w", err)
	}
	if l, ok := src.(Labeled); ok {
		if err := dst.WriteLabels(dataset.EntityLabels, l.EntityLabels()); err != nil {
			return nil, fmt.Errorf("failed to store entity labels: %w", err)
		}
		if err := dst.WriteLabels(dataset.RelationLabels, l.RelationLabels()); err != nil {
			return nil, fmt.Errorf("failed to store relation labels: %w", err)
		}
	}

	// Pass 2: triples, one worker per part.
	res := &Result{Name: name, Counts: make(map[string]int, len(parts))}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(runtime.NumCPU(), MaxWorkers))
	for _, part := range parts {
		g.Go(func() error {
			n, err := dst.WritePart(gctx, part, src.Triples(gctx, part))
			if err != nil {
				return fmt.Errorf("part %s: %w", part, err)
			}
			logger.Debug("ingested part", "part", part, "triples", n)
			mu.Lock()
			res.Counts[part] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	logger.Info("ingested dataset", "name", name, "counts", res.Counts, "duration", res.Duration)
	return res, nil
}

// Dir loads the labeled TSV dataset in srcDir and persists it under storeDir.
func Dir(ctx context.Context, srcDir string, cfg *store.Config, opts Options) (*Result, error) {
	src, err := dataset.LoadTSV(srcDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", srcDir, err)
	}
	dst, err := dataset.OpenBadger(cfg)
	if err != nil {
		return nil, err
	}
	defer dst.Close()
	return Run(ctx, src, dst, opts)
}

// Tree ingests every dataset directory below srcRoot (a directory holding
// dataset.yaml or conventional split files) into dataRoot/<dir name>.
func Tree(ctx context.Context, srcRoot, dataRoot string, newConfig func(dir string) *store.Config, opts Options) ([]*Result, error) {
	var results []*Result
	err := filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" || d.Name() == "badger" {
			return filepath.SkipDir
		}
		if !dataset.IsTSVDir(path) {
			return nil
		}
		target := filepath.Join(dataRoot, filepath.Base(path))
		if err := os.MkdirAll(target, 0o755); err != nil {
			return err
		}
		res, err := Dir(ctx, path, newConfig(target), opts)
		if err != nil {
			return err
		}
		results = append(results, res)
		return filepath.SkipDir
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
