package analysis

import (
	"context"
	"iter"
	"slices"

	"github.com/RoaringBitmap/roaring"

	"github.com/duynguyendang/relpat/pkg/dataset"
	"github.com/duynguyendang/relpat/pkg/kg"
)

// CardinalityRow is one non-zero cardinality type score of a relation.
type CardinalityRow struct {
	RelationID    uint32     `json:"relation_id"`
	RelationLabel string     `json:"relation_label,omitempty"`
	Type          kg.Pattern `json:"relation_type"`
	Support       int        `json:"support"`
	Confidence    float64    `json:"confidence"`
}

// relationMaps groups the triples of one relation by head and by tail.
type relationMaps struct {
	tailsOf map[uint32]*roaring.Bitmap
	headsOf map[uint32]*roaring.Bitmap
	count   int
}

func groupByRelation(triples []kg.Triple) (map[uint32]*relationMaps, []uint32) {
	groups := make(map[uint32]*relationMaps)
	var relations []uint32
	for _, t := range triples {
		g, ok := groups[t.Relation]
		if !ok {
			g = &relationMaps{
				tailsOf: make(map[uint32]*roaring.Bitmap),
				headsOf: make(map[uint32]*roaring.Bitmap),
			}
			groups[t.Relation] = g
			relations = append(relations, t.Relation)
		}
		addRelation(g.tailsOf, t.Head, t.Tail)
		addRelation(g.headsOf, t.Tail, t.Head)
		g.count++
	}
	slices.Sort(relations)
	return groups, relations
}

// injectiveConfidence returns the fraction of sources mapped to at most one target.
func injectiveConfidence(targets map[uint32]*roaring.Bitmap) float64 {
	if len(targets) == 0 {
		return 0
	}
	n := 0
	for _, b := range targets {
		if b.GetCardinality() <= 1 {
			n++
		}
	}
	return float64(n) / float64(len(targets))
}

// CardinalityTypeMatches yields, per relation in ascending id order, the four
// cardinality type scores. They sum to 1 for every relation. Support is the
// number of distinct heads plus the number of distinct tails.
func CardinalityTypeMatches(triples []kg.Triple) iter.Seq[kg.PatternMatch] {
	return func(yield func(kg.PatternMatch) bool) {
		groups, relations := groupByRelation(triples)
		for _, r := range relations {
			g := groups[r]
			headInj := injectiveConfidence(g.tailsOf)
			tailInj := injectiveConfidence(g.headsOf)
			support := len(g.tailsOf) + len(g.headsOf)
			scores := [4]float64{
				headInj * tailInj,
				(1 - headInj) * tailInj,
				headInj * (1 - tailInj),
				(1 - headInj) * (1 - tailInj),
			}
			for i, typ := range kg.CardinalityTypes {
				if !yield(kg.PatternMatch{RelationID: r, Pattern: typ, Support: support, Confidence: scores[i]}) {
					return
				}
			}
		}
	}
}

// RelationCardinalityTypes classifies the relations of the selected parts into
// one-to-one, one-to-many, many-to-one and many-to-many. Zero-confidence scores
// are dropped; there is no skyline since each (relation, type) occurs once.
func RelationCardinalityTypes(ctx context.Context, ds dataset.Dataset, parts []string, addLabels bool) ([]CardinalityRow, error) {
	parts, err := dataset.NormalizeParts(ds, parts)
	if err != nil {
		return nil, err
	}
	triples, err := dataset.MappedTriples(ctx, ds, parts)
	if err != nil {
		return nil, err
	}

	var rows []CardinalityRow
	for m := range CardinalityTypeMatches(triples) {
		if m.Confidence <= 0 {
			continue
		}
		row := CardinalityRow{
			RelationID: m.RelationID,
			Type:       m.Pattern,
			Support:    m.Support,
			Confidence: m.Confidence,
		}
		if addLabels {
			row.RelationLabel, _ = ds.RelationLabel(m.RelationID)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
