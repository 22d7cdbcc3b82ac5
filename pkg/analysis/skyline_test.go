package analysis

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/duynguyendang/relpat/pkg/kg"
)

func TestSkyline(t *testing.T) {
	in := []kg.PatternMatch{
		{RelationID: 1, Pattern: kg.Composition, Support: 5, Confidence: 0.5},
		{RelationID: 1, Pattern: kg.Composition, Support: 5, Confidence: 0.3},
		{RelationID: 1, Pattern: kg.Composition, Support: 3, Confidence: 0.9},
		{RelationID: 1, Pattern: kg.Composition, Support: 3, Confidence: 0.9},
		{RelationID: 1, Pattern: kg.Composition, Support: 2, Confidence: 0.4},
		{RelationID: 1, Pattern: kg.Symmetry, Support: 2, Confidence: 0.4},
		{RelationID: 0, Pattern: kg.Composition, Support: 1, Confidence: 0.1},
	}
	assert.Equal(t, []kg.PatternMatch{
		{RelationID: 0, Pattern: kg.Composition, Support: 1, Confidence: 0.1},
		{RelationID: 1, Pattern: kg.Composition, Support: 5, Confidence: 0.5},
		{RelationID: 1, Pattern: kg.Composition, Support: 3, Confidence: 0.9},
		{RelationID: 1, Pattern: kg.Symmetry, Support: 2, Confidence: 0.4},
	}, Skyline(slices.Values(in)))

	assert.Empty(t, Skyline(slices.Values([]kg.PatternMatch(nil))))
}

// bruteForceSkyline keeps the distinct points no other distinct point is at least as good as in both dimensions.
func bruteForceSkyline(points []skylinePoint) map[skylinePoint]bool {
	out := map[skylinePoint]bool{}
	for _, p := range points {
		dominated := false
		for _, q := range points {
			if q != p && q.support >= p.support && q.confidence >= p.confidence {
				dominated = true
				break
			}
		}
		if !dominated {
			out[p] = true
		}
	}
	return out
}

func TestSkylineMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for range 500 {
		n := 1 + rng.Intn(12)
		points := make([]skylinePoint, n)
		var matches []kg.PatternMatch
		for i := range points {
			points[i] = skylinePoint{support: rng.Intn(6), confidence: float64(rng.Intn(6)) / 5}
			matches = append(matches, kg.PatternMatch{
				RelationID: 3,
				Pattern:    kg.Inversion,
				Support:    points[i].support,
				Confidence: points[i].confidence,
			})
		}

		got := map[skylinePoint]bool{}
		for _, m := range Skyline(slices.Values(matches)) {
			got[skylinePoint{support: m.Support, confidence: m.Confidence}] = true
		}
		assert.Equal(t, bruteForceSkyline(points), got, "points %v", points)
	}
}
