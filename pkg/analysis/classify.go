package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/duynguyendang/relpat/pkg/cache"
	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/dataset"
	"github.com/duynguyendang/relpat/pkg/kg"
)

// ResultCache stores computed pattern tables keyed by dataset name and triple set hash.
// Get returns cache.ErrCacheMiss when no entry exists.
type ResultCache interface {
	Get(ctx context.Context, datasetName, key string) ([]kg.PatternMatch, error)
	Put(ctx context.Context, datasetName, key string, matches []kg.PatternMatch) error
}

// Config configures a Classifier.
type Config struct {
	// Cache stores computed tables; nil disables caching.
	Cache ResultCache
	// Force recomputes even when a cached table exists.
	Force bool
	// Workers bounds parallel composition evaluation; <= 0 uses GOMAXPROCS.
	Workers int
	// InversionBothDirections tests both directions of every relation pair.
	InversionBothDirections bool
	Logger                  *slog.Logger
	Progress                Progress
}

// ClassifyOptions are the per-request parameters of ClassifyRelations.
type ClassifyOptions struct {
	// MinSupport is the inclusive lower bound on support.
	MinSupport int
	// MinConfidence is the inclusive lower bound on confidence, in [0, 1].
	MinConfidence float64
	// DropConfidence collapses the result to distinct (relation, pattern) pairs.
	DropConfidence bool
	// Parts selects dataset splits; empty selects all.
	Parts []string
	// Force bypasses the cache for this request.
	Force bool
	// AddLabels decorates the result with relation labels.
	AddLabels bool
}

// DefaultClassifyOptions returns the options used when a caller sets none:
// no minimum support, confidence at least 0.95, support and confidence dropped.
func DefaultClassifyOptions() ClassifyOptions {
	return ClassifyOptions{
		MinSupport:     0,
		MinConfidence:  0.95,
		DropConfidence: true,
	}
}

// Validate checks the thresholds.
func (o ClassifyOptions) Validate() error {
	if o.MinSupport < 0 {
		return errors.Invalidf("min support must be non-negative, got %d", o.MinSupport)
	}
	if math.IsNaN(o.MinConfidence) || o.MinConfidence < 0 || o.MinConfidence > 1 {
		return errors.Invalidf("min confidence must be in [0, 1], got %v", o.MinConfidence)
	}
	return nil
}

// Classifier categorizes relations by the logical patterns they satisfy.
type Classifier struct {
	cfg      Config
	logger   *slog.Logger
	progress Progress
	inflight singleflight.Group
}

// NewClassifier creates a Classifier.
func NewClassifier(cfg Config) *Classifier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progress := cfg.Progress
	if progress == nil {
		progress = noProgress{}
	}
	return &Classifier{cfg: cfg, logger: logger, progress: progress}
}

func (c *Classifier) workers() int {
	if c.cfg.Workers > 0 {
		return c.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// ClassifyRelations returns the relations of ds satisfying symmetry, anti-symmetry,
// inversion or composition with the requested support and confidence.
//
// The unpruned skyline table is cached under the hash of the selected triples;
// thresholds are applied after loading or computing it.
func (c *Classifier) ClassifyRelations(ctx context.Context, ds dataset.Dataset, opts ClassifyOptions) (*PatternTable, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	parts, err := dataset.NormalizeParts(ds, opts.Parts)
	if err != nil {
		return nil, err
	}
	triples, err := dataset.MappedTriples(ctx, ds, parts)
	if err != nil {
		return nil, fmt.Errorf("failed to read triples: %w", err)
	}
	metrics.tripleCount.Observe(float64(len(triples)))

	key := CacheKey(triples)
	matches, cached, err := c.loadOrCompute(ctx, ds.Name(), c.entryKey(key), triples, c.cfg.Force || opts.Force)
	if err != nil {
		return nil, err
	}

	table := &PatternTable{
		Dataset:  ds.Name(),
		Parts:    parts,
		CacheKey: key,
		Cached:   cached,
	}
	table.setMatches(Prune(matches, opts.MinSupport, opts.MinConfidence), opts.DropConfidence)
	if opts.AddLabels {
		table.RelationLabels = relationLabels(ds, table.relationIDs())
	}
	return table, nil
}

// Classify computes the full skyline pattern table of triples without caching.
func (c *Classifier) Classify(ctx context.Context, triples []kg.Triple) ([]kg.PatternMatch, error) {
	return c.compute(ctx, triples)
}

// entryKey extends the triple set key with every setting that changes the computed table.
func (c *Classifier) entryKey(key string) string {
	if c.cfg.InversionBothDirections {
		return key + "-inv2"
	}
	return key
}

func (c *Classifier) loadOrCompute(ctx context.Context, name, key string, triples []kg.Triple, force bool) ([]kg.PatternMatch, bool, error) {
	logger := c.logger.With("dataset", name, "key", key)
	if c.cfg.Cache != nil && !force {
		matches, err := c.cfg.Cache.Get(ctx, name, key)
		switch {
		case err == nil:
			metrics.cacheLookups.WithLabelValues("hit").Inc()
			metrics.classifications.WithLabelValues("cached").Inc()
			logger.Info("loaded precomputed relational patterns", "rows", len(matches))
			return matches, true, nil
		case errors.Is(err, cache.ErrCacheMiss):
			metrics.cacheLookups.WithLabelValues("miss").Inc()
			logger.Debug("no cached relational patterns")
		default:
			metrics.cacheLookups.WithLabelValues("error").Inc()
			logger.Warn("failed to read cached relational patterns; recomputing", "error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	// The shared run outlives any single caller; each caller stops waiting on its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(name+"/"+key, func() (any, error) {
		matches, err := c.compute(shared, triples)
		if err != nil {
			return nil, err
		}
		if c.cfg.Cache != nil {
			if err := c.cfg.Cache.Put(shared, name, key, matches); err != nil {
				logger.Error("failed to cache relational patterns", "error", err)
			} else {
				logger.Info("cached relational patterns", "rows", len(matches))
			}
		}
		return matches, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, false, res.Err
	}
	metrics.classifications.WithLabelValues("computed").Inc()
	return slices.Clone(res.Val.([]kg.PatternMatch)), false, nil
}

// compute runs all evaluators, drops zero-confidence matches and keeps the skyline.
func (c *Classifier) compute(ctx context.Context, triples []kg.Triple) ([]kg.PatternMatch, error) {
	logger := c.logger.With("run", uuid.NewString())
	logger.Info("mining relational patterns", "triples", len(triples))

	start := time.Now()
	idx := BuildIndex(triples)
	observePhase("index", start)

	var found []kg.PatternMatch
	keep := func(m kg.PatternMatch) {
		if m.Confidence > 0 {
			found = append(found, m)
		}
	}

	logger.Debug("evaluating unary patterns", "patterns", []kg.Pattern{kg.Symmetry, kg.AntiSymmetry})
	start = time.Now()
	for m := range UnaryPatterns(idx) {
		keep(m)
	}
	observePhase("unary", start)

	logger.Debug("evaluating binary patterns", "patterns", []kg.Pattern{kg.Inversion})
	start = time.Now()
	for m := range BinaryPatterns(idx, c.cfg.InversionBothDirections) {
		keep(m)
	}
	observePhase("binary", start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	candidates := CompositionCandidates(triples)
	observePhase("candidates", start)
	metrics.candidates.Observe(float64(len(candidates)))
	logger.Debug("evaluating ternary patterns",
		"patterns", []kg.Pattern{kg.Composition},
		"candidates", len(candidates),
		"workers", c.workers(),
	)

	start = time.Now()
	composed, err := c.evaluateCompositions(ctx, idx, candidates)
	if err != nil {
		return nil, err
	}
	observePhase("ternary", start)
	found = append(found, composed...)

	start = time.Now()
	table := Skyline(slices.Values(found))
	observePhase("skyline", start)
	logger.Info("mined relational patterns", "matches", len(found), "skyline", len(table))
	return table, nil
}

// evaluateCompositions evaluates candidates on a bounded worker pool. Results are
// merged in candidate order, so the output matches TernaryPatterns minus
// zero-confidence rows.
func (c *Classifier) evaluateCompositions(ctx context.Context, idx *Index, candidates []RelationPair) ([]kg.PatternMatch, error) {
	c.progress.Start(len(candidates))
	defer c.progress.Finish()

	results := make([][]kg.PatternMatch, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers())
	for i, cand := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = slices.DeleteFunc(compositionMatches(idx, cand), func(m kg.PatternMatch) bool {
				return m.Confidence <= 0
			})
			c.progress.Increment()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []kg.PatternMatch
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func observePhase(phase string, start time.Time) {
	metrics.phaseDurationSeconds.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
