package analysis

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynguyendang/relpat/pkg/cache"
	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/dataset"
	"github.com/duynguyendang/relpat/pkg/kg"
)

type stubCache struct {
	mu      sync.Mutex
	entries map[string][]kg.PatternMatch
	getErr  error
	gets    int
	puts    int
}

func newStubCache() *stubCache {
	return &stubCache{entries: map[string][]kg.PatternMatch{}}
}

func (c *stubCache) Get(_ context.Context, name, key string) ([]kg.PatternMatch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	m, ok := c.entries[name+"/"+key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return slices.Clone(m), nil
}

func (c *stubCache) Put(_ context.Context, name, key string, matches []kg.PatternMatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.entries[name+"/"+key] = slices.Clone(matches)
	return nil
}

type countingProgress struct {
	total atomic.Int64
	done  atomic.Int64
}

func (p *countingProgress) Start(total int) { p.total.Store(int64(total)) }
func (p *countingProgress) Increment()      { p.done.Add(1) }
func (p *countingProgress) Finish()         {}

func exampleDataset() *dataset.Memory {
	return dataset.NewMemory("example", map[string][]kg.Triple{
		dataset.PartTraining: exampleTriples[:2],
		dataset.PartTesting:  exampleTriples[2:],
	}, dataset.WithRelationLabels([]string{"sibling_of", "parent_of"}))
}

func TestClassifyRelationsExample(t *testing.T) {
	ctx := context.Background()
	c := NewClassifier(Config{})

	table, err := c.ClassifyRelations(ctx, exampleDataset(), DefaultClassifyOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{dataset.PartTraining, dataset.PartTesting}, table.Parts)
	assert.Equal(t, CacheKey(exampleTriples), table.CacheKey)
	assert.False(t, table.Cached)
	assert.Nil(t, table.Matches)
	assert.Equal(t, []kg.RelationPattern{
		{RelationID: 1, Pattern: kg.AntiSymmetry},
		{RelationID: 0, Pattern: kg.Symmetry},
	}, table.Patterns)

	opts := DefaultClassifyOptions()
	opts.DropConfidence = false
	opts.MinConfidence = 0
	table, err = c.ClassifyRelations(ctx, exampleDataset(), opts)
	require.NoError(t, err)
	assert.Equal(t, []kg.PatternMatch{
		{RelationID: 1, Pattern: kg.AntiSymmetry, Support: 1, Confidence: 1},
		{RelationID: 0, Pattern: kg.Symmetry, Support: 2, Confidence: 1},
	}, table.Matches)

	opts.MinSupport = 2
	table, err = c.ClassifyRelations(ctx, exampleDataset(), opts)
	require.NoError(t, err)
	assert.Equal(t, []kg.PatternMatch{
		{RelationID: 0, Pattern: kg.Symmetry, Support: 2, Confidence: 1},
	}, table.Matches)
}

func TestClassifyRelationsParts(t *testing.T) {
	ctx := context.Background()
	c := NewClassifier(Config{})
	opts := DefaultClassifyOptions()
	opts.Parts = []string{dataset.PartTraining}
	opts.AddLabels = true

	table, err := c.ClassifyRelations(ctx, exampleDataset(), opts)
	require.NoError(t, err)
	assert.Equal(t, CacheKey(exampleTriples[:2]), table.CacheKey)
	assert.Equal(t, []kg.RelationPattern{{RelationID: 0, Pattern: kg.Symmetry}}, table.Patterns)
	assert.Equal(t, map[uint32]string{0: "sibling_of"}, table.RelationLabels)

	var buf bytes.Buffer
	require.NoError(t, table.WriteTSV(&buf))
	assert.Equal(t, "relation_id\trelation_label\tpattern\n0\tsibling_of\tsymmetry\n", buf.String())

	opts.Parts = []string{"trainig"}
	_, err = c.ClassifyRelations(ctx, exampleDataset(), opts)
	assert.ErrorIs(t, err, dataset.ErrUnknownPart)
}

func TestClassifyRelationsInvalidThresholds(t *testing.T) {
	c := NewClassifier(Config{})
	for _, opts := range []ClassifyOptions{
		{MinSupport: -1, MinConfidence: 0.5},
		{MinConfidence: 1.5},
		{MinConfidence: -0.1},
	} {
		_, err := c.ClassifyRelations(context.Background(), exampleDataset(), opts)
		assert.ErrorIs(t, err, errors.ErrInvalidInput, "%+v", opts)
	}
}

func TestClassifyRelationsCache(t *testing.T) {
	ctx := context.Background()
	store := newStubCache()
	c := NewClassifier(Config{Cache: store})
	opts := DefaultClassifyOptions()

	first, err := c.ClassifyRelations(ctx, exampleDataset(), opts)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, store.puts)
	assert.Equal(t, []kg.PatternMatch{
		{RelationID: 1, Pattern: kg.AntiSymmetry, Support: 1, Confidence: 1},
		{RelationID: 0, Pattern: kg.Symmetry, Support: 2, Confidence: 1},
	}, store.entries["example/"+CacheKey(exampleTriples)])

	second, err := c.ClassifyRelations(ctx, exampleDataset(), opts)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Patterns, second.Patterns)
	assert.Equal(t, 1, store.puts)

	// Thresholds apply to cached tables too.
	opts.MinSupport = 2
	third, err := c.ClassifyRelations(ctx, exampleDataset(), opts)
	require.NoError(t, err)
	assert.True(t, third.Cached)
	assert.Equal(t, []kg.RelationPattern{{RelationID: 0, Pattern: kg.Symmetry}}, third.Patterns)

	opts.Force = true
	gets := store.gets
	forced, err := c.ClassifyRelations(ctx, exampleDataset(), opts)
	require.NoError(t, err)
	assert.False(t, forced.Cached)
	assert.Equal(t, gets, store.gets)
	assert.Equal(t, 2, store.puts)
}

func TestClassifyRelationsCacheSeparatesInversionDirections(t *testing.T) {
	ctx := context.Background()
	ds := dataset.NewMemory("directions", map[string][]kg.Triple{
		dataset.PartTraining: {kg.NewTriple(0, 0, 1), kg.NewTriple(2, 1, 3), kg.NewTriple(0, 1, 1)},
	})
	opts := DefaultClassifyOptions()
	opts.DropConfidence = false
	opts.MinConfidence = 0
	shared := cache.NewFileCache(t.TempDir())

	oneWay, err := NewClassifier(Config{Cache: shared}).ClassifyRelations(ctx, ds, opts)
	require.NoError(t, err)
	assert.Len(t, oneWay.Matches, 3)

	bothWays, err := NewClassifier(Config{Cache: shared, InversionBothDirections: true}).ClassifyRelations(ctx, ds, opts)
	require.NoError(t, err)
	assert.False(t, bothWays.Cached)
	assert.Len(t, bothWays.Matches, 4)
	assert.Contains(t, bothWays.Matches, kg.PatternMatch{RelationID: 0, Pattern: kg.Inversion, Support: 2, Confidence: 0.5})

	again, err := NewClassifier(Config{Cache: shared}).ClassifyRelations(ctx, ds, opts)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, oneWay.Matches, again.Matches)

	again, err = NewClassifier(Config{Cache: shared, InversionBothDirections: true}).ClassifyRelations(ctx, ds, opts)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, bothWays.Matches, again.Matches)
}

// gatedProgress blocks the first Start until release is closed.
type gatedProgress struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (p *gatedProgress) Start(int) {
	p.once.Do(func() {
		close(p.started)
		<-p.release
	})
}
func (p *gatedProgress) Increment() {}
func (p *gatedProgress) Finish()    {}

func TestClassifyRelationsCanceledCallerDoesNotAbortSharedRun(t *testing.T) {
	store := newStubCache()
	progress := &gatedProgress{started: make(chan struct{}), release: make(chan struct{})}
	c := NewClassifier(Config{Cache: store, Progress: progress})
	opts := DefaultClassifyOptions()

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.ClassifyRelations(ctx, exampleDataset(), opts)
		firstErr <- err
	}()
	<-progress.started

	type result struct {
		table *PatternTable
		err   error
	}
	second := make(chan result, 1)
	go func() {
		table, err := c.ClassifyRelations(context.Background(), exampleDataset(), opts)
		second <- result{table, err}
	}()

	// The canceled caller returns while the run is still in progress.
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(progress.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, []kg.RelationPattern{
		{RelationID: 1, Pattern: kg.AntiSymmetry},
		{RelationID: 0, Pattern: kg.Symmetry},
	}, got.table.Patterns)

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.puts >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestClassifyRelationsUnreadableCacheRecomputes(t *testing.T) {
	store := newStubCache()
	store.getErr = fmt.Errorf("zstd: magic number mismatch")
	c := NewClassifier(Config{Cache: store})

	table, err := c.ClassifyRelations(context.Background(), exampleDataset(), DefaultClassifyOptions())
	require.NoError(t, err)
	assert.False(t, table.Cached)
	assert.Len(t, table.Patterns, 2)
	assert.Equal(t, 1, store.puts)
}

func TestClassifyParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	triples := randomTriples(rng, 400, 40, 6)
	ctx := context.Background()

	sequential, err := NewClassifier(Config{Workers: 1}).Classify(ctx, triples)
	require.NoError(t, err)

	progress := &countingProgress{}
	parallel, err := NewClassifier(Config{Workers: 8, Progress: progress}).Classify(ctx, triples)
	require.NoError(t, err)
	assert.Equal(t, sequential, parallel)

	candidates := CompositionCandidates(triples)
	assert.EqualValues(t, len(candidates), progress.total.Load())
	assert.EqualValues(t, len(candidates), progress.done.Load())

	// Same result as the plain streaming pipeline.
	var nonZero []kg.PatternMatch
	for m := range Patterns(triples) {
		if m.Confidence > 0 {
			nonZero = append(nonZero, m)
		}
	}
	assert.Equal(t, Skyline(slices.Values(nonZero)), sequential)
	assert.True(t, slices.IsSortedFunc(sequential, kg.ComparePatternMatches))
}

func TestClassifyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rng := rand.New(rand.NewSource(5))
	_, err := NewClassifier(Config{}).Classify(ctx, randomTriples(rng, 100, 10, 3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPruneAndDistinct(t *testing.T) {
	matches := []kg.PatternMatch{
		{RelationID: 0, Pattern: kg.Composition, Support: 1, Confidence: 0.99},
		{RelationID: 0, Pattern: kg.Composition, Support: 4, Confidence: 0.96},
		{RelationID: 2, Pattern: kg.Composition, Support: 9, Confidence: 0.5},
	}
	pruned := Prune(matches, 0, 0.95)
	assert.Len(t, pruned, 2)
	assert.Equal(t, []kg.RelationPattern{{RelationID: 0, Pattern: kg.Composition}}, DistinctPatterns(pruned))
	assert.Len(t, Prune(matches, 4, 0.95), 1)
	assert.Len(t, Prune(matches, 0, 0.5), 3, "bounds are inclusive")
}
