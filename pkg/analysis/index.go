// Package analysis mines logical relation patterns (symmetry, anti-symmetry,
// inversion, composition) and cardinality statistics from id-based triples.
package analysis

import (
	"slices"

	"github.com/RoaringBitmap/roaring"
	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/duynguyendang/relpat/pkg/kg"
)

// Index holds the per-relation structures shared by the pattern evaluators.
// It is read-only once built.
type Index struct {
	relations []uint32
	// pairs[r] holds the distinct (head, tail) pairs of r, packed with kg.EntityPair.Key.
	pairs map[uint32]*roaring64.Bitmap
	// adjacency[r][head] holds the tails reachable from head via r.
	adjacency map[uint32]map[uint32]*roaring.Bitmap
}

// BuildIndex indexes triples in a single pass. Duplicate triples collapse.
func BuildIndex(triples []kg.Triple) *Index {
	idx := &Index{
		pairs:     make(map[uint32]*roaring64.Bitmap),
		adjacency: make(map[uint32]map[uint32]*roaring.Bitmap),
	}
	for _, t := range triples {
		pairs, ok := idx.pairs[t.Relation]
		if !ok {
			pairs = roaring64.New()
			idx.pairs[t.Relation] = pairs
			idx.adjacency[t.Relation] = make(map[uint32]*roaring.Bitmap)
			idx.relations = append(idx.relations, t.Relation)
		}
		pairs.Add(t.Pair().Key())

		heads := idx.adjacency[t.Relation]
		tails, ok := heads[t.Head]
		if !ok {
			tails = roaring.New()
			heads[t.Head] = tails
		}
		tails.Add(t.Tail)
	}
	slices.Sort(idx.relations)
	for _, p := range idx.pairs {
		p.RunOptimize()
	}
	return idx
}

// Relations returns the relation ids with at least one pair, ascending.
func (idx *Index) Relations() []uint32 {
	return slices.Clone(idx.relations)
}

// Support returns the number of distinct entity pairs of r.
func (idx *Index) Support(r uint32) int {
	if p, ok := idx.pairs[r]; ok {
		return int(p.GetCardinality())
	}
	return 0
}

// Pairs returns the pair set of r, or nil. The bitmap must not be modified.
func (idx *Index) Pairs(r uint32) *roaring64.Bitmap {
	return idx.pairs[r]
}

// Tails returns the tails reachable from head via r, or nil.
func (idx *Index) Tails(r, head uint32) *roaring.Bitmap {
	return idx.adjacency[r][head]
}

// HasPair reports whether (head, tail) was observed for r.
func (idx *Index) HasPair(r uint32, p kg.EntityPair) bool {
	pairs, ok := idx.pairs[r]
	return ok && pairs.Contains(p.Key())
}

func reversePairs(pairs *roaring64.Bitmap) *roaring64.Bitmap {
	rev := roaring64.New()
	it := pairs.Iterator()
	for it.HasNext() {
		rev.Add(kg.PairFromKey(it.Next()).Reverse().Key())
	}
	return rev
}
