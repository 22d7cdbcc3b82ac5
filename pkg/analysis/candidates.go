package analysis

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/duynguyendang/relpat/pkg/kg"
)

// RelationPair is a composition candidate: some entity is the tail of a First
// triple and the head of a Second triple.
type RelationPair struct {
	First  uint32 `json:"first"`
	Second uint32 `json:"second"`
}

func (p RelationPair) key() uint64 {
	return uint64(p.First)<<32 | uint64(p.Second)
}

func (p RelationPair) String() string {
	return fmt.Sprintf("(%d, %d)", p.First, p.Second)
}

// CompositionCandidates returns the relation pairs (r1, r2) with at least one
// entity e such that (h, r1, e) and (e, r2, t) are both in triples.
// Pairs are returned sorted by (r1, r2).
func CompositionCandidates(triples []kg.Triple) []RelationPair {
	incoming := make(map[uint32]*roaring.Bitmap)
	outgoing := make(map[uint32]*roaring.Bitmap)
	for _, t := range triples {
		addRelation(outgoing, t.Head, t.Relation)
		addRelation(incoming, t.Tail, t.Relation)
	}

	found := roaring64.New()
	for e, ins := range incoming {
		outs, ok := outgoing[e]
		if !ok {
			continue
		}
		r2s := outs.ToArray()
		it := ins.Iterator()
		for it.HasNext() {
			r1 := it.Next()
			for _, r2 := range r2s {
				found.Add(RelationPair{First: r1, Second: r2}.key())
			}
		}
	}

	out := make([]RelationPair, 0, found.GetCardinality())
	it := found.Iterator()
	for it.HasNext() {
		k := it.Next()
		out = append(out, RelationPair{First: uint32(k >> 32), Second: uint32(k)})
	}
	return out
}

func addRelation(m map[uint32]*roaring.Bitmap, entity, relation uint32) {
	b, ok := m[entity]
	if !ok {
		b = roaring.New()
		m[entity] = b
	}
	b.Add(relation)
}
