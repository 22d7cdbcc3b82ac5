package analysis

import (
	"iter"

	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/duynguyendang/relpat/pkg/kg"
)

// UnaryPatterns yields symmetry and anti-symmetry matches for every indexed relation:
//
//	symmetry:      r(x, y) => r(y, x)
//	anti-symmetry: r(x, y) => not r(y, x)
//
// Both rows of a relation share support = number of distinct pairs.
func UnaryPatterns(idx *Index) iter.Seq[kg.PatternMatch] {
	return func(yield func(kg.PatternMatch) bool) {
		for _, r := range idx.relations {
			pairs := idx.pairs[r]
			support := pairs.GetCardinality()
			if support == 0 {
				continue
			}
			symmetric := pairs.AndCardinality(reversePairs(pairs))
			if !yield(kg.PatternMatch{
				RelationID: r,
				Pattern:    kg.Symmetry,
				Support:    int(support),
				Confidence: ratio(symmetric, support),
			}) {
				return
			}
			if !yield(kg.PatternMatch{
				RelationID: r,
				Pattern:    kg.AntiSymmetry,
				Support:    int(support),
				Confidence: ratio(support-symmetric, support),
			}) {
				return
			}
		}
	}
}

// BinaryPatterns yields inversion matches r'(x, y) => r(y, x).
//
// Each unordered pair r1 < r2 is tested once: support = |pairs(r1)|,
// confidence = |pairs(r1) ∩ pairs(r2)| / |pairs(r1)|, attributed to r2.
// With bothDirections the swapped test (support |pairs(r2)|, attributed to r1)
// is emitted as well.
func BinaryPatterns(idx *Index, bothDirections bool) iter.Seq[kg.PatternMatch] {
	return func(yield func(kg.PatternMatch) bool) {
		for i, r1 := range idx.relations {
			h1 := idx.pairs[r1]
			s1 := h1.GetCardinality()
			for _, r2 := range idx.relations[i+1:] {
				h2 := idx.pairs[r2]
				common := h1.AndCardinality(h2)
				if s1 > 0 && !yield(kg.PatternMatch{
					RelationID: r2,
					Pattern:    kg.Inversion,
					Support:    int(s1),
					Confidence: ratio(common, s1),
				}) {
					return
				}
				if !bothDirections {
					continue
				}
				if s2 := h2.GetCardinality(); s2 > 0 && !yield(kg.PatternMatch{
					RelationID: r1,
					Pattern:    kg.Inversion,
					Support:    int(s2),
					Confidence: ratio(common, s2),
				}) {
					return
				}
			}
		}
	}
}

// TernaryPatterns yields composition matches r1(x, y) ∧ r2(y, z) => r(x, z)
// for each candidate (r1, r2), in candidate order.
func TernaryPatterns(idx *Index, candidates []RelationPair) iter.Seq[kg.PatternMatch] {
	return func(yield func(kg.PatternMatch) bool) {
		for _, c := range candidates {
			for _, m := range compositionMatches(idx, c) {
				if !yield(m) {
					return
				}
			}
		}
	}
}

// compositionMatches evaluates one candidate against every indexed relation.
// It returns nil when the chained left-hand side is empty.
func compositionMatches(idx *Index, c RelationPair) []kg.PatternMatch {
	lhs := composeLHS(idx, c)
	support := lhs.GetCardinality()
	if support == 0 {
		return nil
	}
	out := make([]kg.PatternMatch, 0, len(idx.relations))
	for _, r := range idx.relations {
		out = append(out, kg.PatternMatch{
			RelationID: r,
			Pattern:    kg.Composition,
			Support:    int(support),
			Confidence: ratio(lhs.AndCardinality(idx.pairs[r]), support),
		})
	}
	return out
}

// composeLHS returns {(x, z) : (x, y) in pairs(r1), z in adjacency(r2)[y]}.
func composeLHS(idx *Index, c RelationPair) *roaring64.Bitmap {
	lhs := roaring64.New()
	first, ok := idx.pairs[c.First]
	if !ok {
		return lhs
	}
	next := idx.adjacency[c.Second]
	if len(next) == 0 {
		return lhs
	}
	it := first.Iterator()
	for it.HasNext() {
		p := kg.PairFromKey(it.Next())
		tails, ok := next[p.Tail]
		if !ok {
			continue
		}
		zs := tails.Iterator()
		for zs.HasNext() {
			lhs.Add(kg.EntityPair{Head: p.Head, Tail: zs.Next()}.Key())
		}
	}
	return lhs
}

// Patterns indexes triples and yields unary, binary and ternary matches in that order.
func Patterns(triples []kg.Triple) iter.Seq[kg.PatternMatch] {
	return func(yield func(kg.PatternMatch) bool) {
		idx := BuildIndex(triples)
		for _, seq := range []iter.Seq[kg.PatternMatch]{
			UnaryPatterns(idx),
			BinaryPatterns(idx, false),
			TernaryPatterns(idx, CompositionCandidates(triples)),
		} {
			for m := range seq {
				if !yield(m) {
					return
				}
			}
		}
	}
}

func ratio(num, denom uint64) float64 {
	return float64(num) / float64(denom)
}
