package analysis

import (
	"context"

	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/dataset"
	"github.com/duynguyendang/relpat/pkg/kg"
)

// TotalPart names the aggregate over all parts in count tables.
const TotalPart = "total"

// Column selects a triple position.
type Column int

const (
	HeadColumn Column = iota
	RelationColumn
	TailColumn
)

func (c Column) of(t kg.Triple) uint32 {
	switch c {
	case HeadColumn:
		return t.Head
	case RelationColumn:
		return t.Relation
	default:
		return t.Tail
	}
}

// IDCounts returns a dense vector c where c[i] is the number of triples whose
// column value is i, for i in [0, numIDs).
func IDCounts(triples []kg.Triple, column Column, numIDs int) ([]int, error) {
	counts := make([]int, numIDs)
	for _, t := range triples {
		id := column.of(t)
		if int(id) >= numIDs {
			return nil, errors.Invalidf("id %d out of range [0, %d)", id, numIDs)
		}
		counts[id]++
	}
	return counts, nil
}

// RelationCountRow holds the number of triples of one relation per part.
type RelationCountRow struct {
	RelationID    uint32         `json:"relation_id"`
	RelationLabel string         `json:"relation_label"`
	Counts        map[string]int `json:"counts"`
	Total         int            `json:"total"`
}

// RelationCounts returns one row per relation id in [0, NumRelations), with
// counts for every part of ds.
func RelationCounts(ctx context.Context, ds dataset.Dataset) ([]RelationCountRow, error) {
	n := ds.NumRelations()
	rows := make([]RelationCountRow, n)
	for id := range rows {
		rows[id] = RelationCountRow{
			RelationID:    uint32(id),
			RelationLabel: relationName(ds, uint32(id)),
			Counts:        make(map[string]int),
		}
	}
	for _, part := range ds.Parts() {
		triples, err := dataset.MappedTriples(ctx, ds, []string{part})
		if err != nil {
			return nil, err
		}
		counts, err := IDCounts(triples, RelationColumn, n)
		if err != nil {
			return nil, err
		}
		for id, c := range counts {
			rows[id].Counts[part] = c
			rows[id].Total += c
		}
	}
	return rows, nil
}

// HeadTailCount counts occurrences of an entity as head and as tail.
type HeadTailCount struct {
	Head  int `json:"head"`
	Tail  int `json:"tail"`
	Total int `json:"total"`
}

func (c *HeadTailCount) add(o HeadTailCount) {
	c.Head += o.Head
	c.Tail += o.Tail
	c.Total += o.Total
}

// EntityCountRow holds head/tail counts of one entity per part.
type EntityCountRow struct {
	EntityID    uint32                   `json:"entity_id"`
	EntityLabel string                   `json:"entity_label"`
	Counts      map[string]HeadTailCount `json:"counts"`
	Total       HeadTailCount            `json:"total"`
}

// EntityCounts returns one row per entity id in [0, NumEntities).
func EntityCounts(ctx context.Context, ds dataset.Dataset) ([]EntityCountRow, error) {
	n := ds.NumEntities()
	rows := make([]EntityCountRow, n)
	for id := range rows {
		rows[id] = EntityCountRow{
			EntityID:    uint32(id),
			EntityLabel: entityName(ds, uint32(id)),
			Counts:      make(map[string]HeadTailCount),
		}
	}
	for _, part := range ds.Parts() {
		triples, err := dataset.MappedTriples(ctx, ds, []string{part})
		if err != nil {
			return nil, err
		}
		heads, err := IDCounts(triples, HeadColumn, n)
		if err != nil {
			return nil, err
		}
		tails, err := IDCounts(triples, TailColumn, n)
		if err != nil {
			return nil, err
		}
		for id := range rows {
			c := HeadTailCount{Head: heads[id], Tail: tails[id], Total: heads[id] + tails[id]}
			rows[id].Counts[part] = c
			rows[id].Total.add(c)
		}
	}
	return rows, nil
}

// CoOccurrenceRow counts, for one entity within one part, how often it is the
// head (Head[r]) and the tail (Tail[r]) of each relation r. It can be read as a
// pseudo-type of the entity.
type CoOccurrenceRow struct {
	Part        string `json:"part"`
	EntityID    uint32 `json:"entity_id"`
	EntityLabel string `json:"entity_label"`
	Head        []int  `json:"head"`
	Tail        []int  `json:"tail"`
}

// EntityRelationCoOccurrence returns NumEntities rows for every part followed by
// NumEntities rows for TotalPart. Parts are in dataset order.
func EntityRelationCoOccurrence(ctx context.Context, ds dataset.Dataset) ([]CoOccurrenceRow, error) {
	numEntities, numRelations := ds.NumEntities(), ds.NumRelations()
	newBlock := func(part string) []CoOccurrenceRow {
		block := make([]CoOccurrenceRow, numEntities)
		for id := range block {
			block[id] = CoOccurrenceRow{
				Part:        part,
				EntityID:    uint32(id),
				EntityLabel: entityName(ds, uint32(id)),
				Head:        make([]int, numRelations),
				Tail:        make([]int, numRelations),
			}
		}
		return block
	}

	total := newBlock(TotalPart)
	var rows []CoOccurrenceRow
	for _, part := range ds.Parts() {
		block := newBlock(part)
		for t, err := range ds.Triples(ctx, part) {
			if err != nil {
				return nil, err
			}
			if int(t.Head) >= numEntities || int(t.Tail) >= numEntities || int(t.Relation) >= numRelations {
				return nil, errors.Invalidf("triple %s outside id space (%d entities, %d relations)", t, numEntities, numRelations)
			}
			block[t.Head].Head[t.Relation]++
			block[t.Tail].Tail[t.Relation]++
			total[t.Head].Head[t.Relation]++
			total[t.Tail].Tail[t.Relation]++
		}
		rows = append(rows, block...)
	}
	return append(rows, total...), nil
}
