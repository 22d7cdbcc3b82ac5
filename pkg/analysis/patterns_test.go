package analysis

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynguyendang/relpat/pkg/kg"
)

// exampleTriples: relation 0 is symmetric over {0, 1}, relation 1 links 1 to 2.
var exampleTriples = []kg.Triple{
	kg.NewTriple(0, 0, 1),
	kg.NewTriple(1, 0, 0),
	kg.NewTriple(1, 1, 2),
}

func TestBuildIndex(t *testing.T) {
	idx := BuildIndex(append(slices.Clone(exampleTriples), kg.NewTriple(0, 0, 1)))
	assert.Equal(t, []uint32{0, 1}, idx.Relations())
	assert.Equal(t, 2, idx.Support(0), "duplicates collapse")
	assert.Equal(t, 1, idx.Support(1))
	assert.Equal(t, 0, idx.Support(7))
	assert.True(t, idx.HasPair(0, kg.EntityPair{Head: 1, Tail: 0}))
	assert.False(t, idx.HasPair(1, kg.EntityPair{Head: 2, Tail: 1}))
	assert.Equal(t, []uint32{2}, idx.Tails(1, 1).ToArray())
	assert.Nil(t, idx.Tails(1, 0))

	empty := BuildIndex(nil)
	assert.Empty(t, empty.Relations())
	assert.Empty(t, slices.Collect(UnaryPatterns(empty)))
}

func TestCompositionCandidates(t *testing.T) {
	assert.Equal(t, []RelationPair{{0, 0}, {0, 1}}, CompositionCandidates(exampleTriples))

	// No entity is both the tail of one relation and the head of another.
	disjoint := []kg.Triple{kg.NewTriple(0, 0, 1), kg.NewTriple(2, 1, 3)}
	assert.Empty(t, CompositionCandidates(disjoint))
	assert.Empty(t, slices.Collect(TernaryPatterns(BuildIndex(disjoint), CompositionCandidates(disjoint))))
}

func TestUnaryPatterns(t *testing.T) {
	got := slices.Collect(UnaryPatterns(BuildIndex(exampleTriples)))
	assert.Equal(t, []kg.PatternMatch{
		{RelationID: 0, Pattern: kg.Symmetry, Support: 2, Confidence: 1},
		{RelationID: 0, Pattern: kg.AntiSymmetry, Support: 2, Confidence: 0},
		{RelationID: 1, Pattern: kg.Symmetry, Support: 1, Confidence: 0},
		{RelationID: 1, Pattern: kg.AntiSymmetry, Support: 1, Confidence: 1},
	}, got)
}

func TestUnaryPatternsPartial(t *testing.T) {
	triples := []kg.Triple{
		kg.NewTriple(1, 3, 2), kg.NewTriple(2, 3, 1),
		kg.NewTriple(4, 3, 5),
		kg.NewTriple(6, 3, 6), // self loops are their own reverse
	}
	got := slices.Collect(UnaryPatterns(BuildIndex(triples)))
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Support)
	assert.InDelta(t, 0.75, got[0].Confidence, 1e-12)
	assert.InDelta(t, 0.25, got[1].Confidence, 1e-12)
}

func TestBinaryPatterns(t *testing.T) {
	triples := []kg.Triple{
		kg.NewTriple(0, 0, 1), kg.NewTriple(1, 0, 2),
		kg.NewTriple(0, 1, 1),
	}
	idx := BuildIndex(triples)

	assert.Equal(t, []kg.PatternMatch{
		{RelationID: 1, Pattern: kg.Inversion, Support: 2, Confidence: 0.5},
	}, slices.Collect(BinaryPatterns(idx, false)))

	assert.Equal(t, []kg.PatternMatch{
		{RelationID: 1, Pattern: kg.Inversion, Support: 2, Confidence: 0.5},
		{RelationID: 0, Pattern: kg.Inversion, Support: 1, Confidence: 1},
	}, slices.Collect(BinaryPatterns(idx, true)))

	single := BuildIndex([]kg.Triple{kg.NewTriple(0, 0, 1)})
	assert.Empty(t, slices.Collect(BinaryPatterns(single, true)))
}

func TestTernaryPatterns(t *testing.T) {
	idx := BuildIndex(exampleTriples)
	got := slices.Collect(TernaryPatterns(idx, CompositionCandidates(exampleTriples)))
	assert.Equal(t, []kg.PatternMatch{
		// r0 ∘ r0 = {(0,0), (1,1)}
		{RelationID: 0, Pattern: kg.Composition, Support: 2, Confidence: 0},
		{RelationID: 1, Pattern: kg.Composition, Support: 2, Confidence: 0},
		// r0 ∘ r1 = {(0,2)}
		{RelationID: 0, Pattern: kg.Composition, Support: 1, Confidence: 0},
		{RelationID: 1, Pattern: kg.Composition, Support: 1, Confidence: 0},
	}, got)

	// grandparent(x, z) <= parent(x, y) ∧ parent(y, z)
	family := []kg.Triple{
		kg.NewTriple(0, 0, 1), kg.NewTriple(1, 0, 2), kg.NewTriple(2, 0, 3),
		kg.NewTriple(0, 1, 2), kg.NewTriple(1, 1, 3),
	}
	idx = BuildIndex(family)
	got = slices.Collect(TernaryPatterns(idx, []RelationPair{{First: 0, Second: 0}}))
	assert.Equal(t, []kg.PatternMatch{
		{RelationID: 0, Pattern: kg.Composition, Support: 2, Confidence: 0},
		{RelationID: 1, Pattern: kg.Composition, Support: 2, Confidence: 1},
	}, got)
}

func TestTernaryPatternsSkipsEmptySupport(t *testing.T) {
	idx := BuildIndex(exampleTriples)
	// r1 ends in entity 2, which has no outgoing r0 edge.
	assert.Empty(t, slices.Collect(TernaryPatterns(idx, []RelationPair{{First: 1, Second: 0}})))
	assert.Empty(t, slices.Collect(TernaryPatterns(idx, []RelationPair{{First: 5, Second: 0}})))
}

func TestPatternsStopsEarly(t *testing.T) {
	n := 0
	for range Patterns(exampleTriples) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
	assert.Len(t, slices.Collect(Patterns(exampleTriples)), 4+1+4)
}

func randomTriples(rng *rand.Rand, n, entities, relations int) []kg.Triple {
	triples := make([]kg.Triple, n)
	for i := range triples {
		triples[i] = kg.NewTriple(
			uint32(rng.Intn(entities)),
			uint32(rng.Intn(relations)),
			uint32(rng.Intn(entities)),
		)
	}
	return triples
}

// naivePatterns evaluates the patterns with plain sets.
func naivePatterns(triples []kg.Triple) map[kg.PatternMatch]int {
	pairs := map[uint32]map[kg.EntityPair]bool{}
	for _, t := range triples {
		if pairs[t.Relation] == nil {
			pairs[t.Relation] = map[kg.EntityPair]bool{}
		}
		pairs[t.Relation][t.Pair()] = true
	}
	out := map[kg.PatternMatch]int{}
	for r, h := range pairs {
		sym := 0
		for p := range h {
			if h[p.Reverse()] {
				sym++
			}
		}
		out[kg.PatternMatch{RelationID: r, Pattern: kg.Symmetry, Support: len(h), Confidence: float64(sym) / float64(len(h))}]++
		out[kg.PatternMatch{RelationID: r, Pattern: kg.AntiSymmetry, Support: len(h), Confidence: float64(len(h)-sym) / float64(len(h))}]++
	}
	for _, c := range CompositionCandidates(triples) {
		lhs := map[kg.EntityPair]bool{}
		for p := range pairs[c.First] {
			for q := range pairs[c.Second] {
				if p.Tail == q.Head {
					lhs[kg.EntityPair{Head: p.Head, Tail: q.Tail}] = true
				}
			}
		}
		for r, h := range pairs {
			hit := 0
			for p := range lhs {
				if h[p] {
					hit++
				}
			}
			out[kg.PatternMatch{RelationID: r, Pattern: kg.Composition, Support: len(lhs), Confidence: float64(hit) / float64(len(lhs))}]++
		}
	}
	return out
}

func TestPatternsMatchNaiveEvaluation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 20 {
		triples := randomTriples(rng, 40, 8, 4)
		want := naivePatterns(triples)
		got := map[kg.PatternMatch]int{}
		idx := BuildIndex(triples)
		for m := range UnaryPatterns(idx) {
			got[m]++
		}
		for m := range TernaryPatterns(idx, CompositionCandidates(triples)) {
			got[m]++
		}
		assert.Equal(t, want, got)
	}
}
