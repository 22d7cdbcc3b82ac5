package analysis

import (
	"context"

	"github.com/duynguyendang/relpat/pkg/dataset"
	"github.com/duynguyendang/relpat/pkg/kg"
)

// FunctionalityRow holds the functionality scores of one relation.
//
// Functionality is the number of distinct heads divided by the number of triples
// of the relation; inverse functionality uses distinct tails. Both lie in (0, 1],
// and smaller values mean entities usually have several outgoing (incoming) edges.
type FunctionalityRow struct {
	RelationID           uint32  `json:"relation_id"`
	RelationLabel        string  `json:"relation_label,omitempty"`
	Functionality        float64 `json:"functionality"`
	InverseFunctionality float64 `json:"inverse_functionality"`
}

// Functionality computes one row per relation occurring in triples, ascending by id.
// Duplicate triples count towards the denominator.
func Functionality(triples []kg.Triple) []FunctionalityRow {
	groups, relations := groupByRelation(triples)
	rows := make([]FunctionalityRow, 0, len(relations))
	for _, r := range relations {
		g := groups[r]
		rows = append(rows, FunctionalityRow{
			RelationID:           r,
			Functionality:        float64(len(g.tailsOf)) / float64(g.count),
			InverseFunctionality: float64(len(g.headsOf)) / float64(g.count),
		})
	}
	return rows
}

// RelationFunctionality computes Functionality over the selected parts of ds.
func RelationFunctionality(ctx context.Context, ds dataset.Dataset, parts []string, addLabels bool) ([]FunctionalityRow, error) {
	parts, err := dataset.NormalizeParts(ds, parts)
	if err != nil {
		return nil, err
	}
	triples, err := dataset.MappedTriples(ctx, ds, parts)
	if err != nil {
		return nil, err
	}
	rows := Functionality(triples)
	if addLabels {
		for i := range rows {
			rows[i].RelationLabel, _ = ds.RelationLabel(rows[i].RelationID)
		}
	}
	return rows, nil
}
