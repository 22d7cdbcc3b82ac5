package analysis

import (
	"cmp"
	"iter"
	"math"
	"slices"

	"github.com/duynguyendang/relpat/pkg/kg"
)

type skylineGroup struct {
	relation uint32
	pattern  kg.Pattern
}

type skylinePoint struct {
	support    int
	confidence float64
}

// Skyline keeps, per (relation, pattern) group, only the (support, confidence)
// points not dominated by another point of the group. Duplicate points collapse.
// The result is sorted in table order.
func Skyline(matches iter.Seq[kg.PatternMatch]) []kg.PatternMatch {
	groups := make(map[skylineGroup]map[skylinePoint]struct{})
	for m := range matches {
		g := skylineGroup{relation: m.RelationID, pattern: m.Pattern}
		points, ok := groups[g]
		if !ok {
			points = make(map[skylinePoint]struct{})
			groups[g] = points
		}
		points[skylinePoint{support: m.Support, confidence: m.Confidence}] = struct{}{}
	}

	var out []kg.PatternMatch
	for g, points := range groups {
		for _, p := range frontier(points) {
			out = append(out, kg.PatternMatch{
				RelationID: g.relation,
				Pattern:    g.pattern,
				Support:    p.support,
				Confidence: p.confidence,
			})
		}
	}
	slices.SortFunc(out, kg.ComparePatternMatches)
	return out
}

// frontier sorts points by decreasing (support, confidence) and keeps those whose
// confidence exceeds every confidence seen before them.
func frontier(points map[skylinePoint]struct{}) []skylinePoint {
	sorted := make([]skylinePoint, 0, len(points))
	for p := range points {
		sorted = append(sorted, p)
	}
	slices.SortFunc(sorted, func(a, b skylinePoint) int {
		if c := cmp.Compare(b.support, a.support); c != 0 {
			return c
		}
		return cmp.Compare(b.confidence, a.confidence)
	})

	best := math.Inf(-1)
	kept := sorted[:0]
	for _, p := range sorted {
		if p.confidence > best {
			kept = append(kept, p)
			best = p.confidence
		}
	}
	return kept
}
