// Package kg holds the id-based data model shared by the dataset, analysis and cache layers.
package kg

import (
	"cmp"
	"fmt"
	"strconv"
)

// Triple is a single (head, relation, tail) fact using integer ids.
// Entity ids range over [0, NumEntities) and relation ids over [0, NumRelations).
type Triple struct {
	Head     uint32
	Relation uint32
	Tail     uint32
}

// NewTriple creates a Triple from its three ids.
func NewTriple(head, relation, tail uint32) Triple {
	return Triple{Head: head, Relation: relation, Tail: tail}
}

// String returns the canonical string form "[h, r, t]".
// The set hasher relies on this form being stable.
func (t Triple) String() string {
	buf := make([]byte, 0, 32)
	buf = append(buf, '[')
	buf = strconv.AppendUint(buf, uint64(t.Head), 10)
	buf = append(buf, ", "...)
	buf = strconv.AppendUint(buf, uint64(t.Relation), 10)
	buf = append(buf, ", "...)
	buf = strconv.AppendUint(buf, uint64(t.Tail), 10)
	buf = append(buf, ']')
	return string(buf)
}

// Pair returns the (head, tail) entity pair of the triple.
func (t Triple) Pair() EntityPair {
	return EntityPair{Head: t.Head, Tail: t.Tail}
}

// Compare orders triples by head, relation, then tail.
func Compare(a, b Triple) int {
	if c := cmp.Compare(a.Head, b.Head); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Relation, b.Relation); c != 0 {
		return c
	}
	return cmp.Compare(a.Tail, b.Tail)
}

// EntityPair is an ordered (head, tail) pair observed for some relation.
type EntityPair struct {
	Head uint32
	Tail uint32
}

// Key packs the pair into a single uint64, head in the upper half.
func (p EntityPair) Key() uint64 {
	return uint64(p.Head)<<32 | uint64(p.Tail)
}

// Reverse returns (tail, head).
func (p EntityPair) Reverse() EntityPair {
	return EntityPair{Head: p.Tail, Tail: p.Head}
}

// PairFromKey is the inverse of EntityPair.Key.
func PairFromKey(key uint64) EntityPair {
	return EntityPair{Head: uint32(key >> 32), Tail: uint32(key)}
}

func (p EntityPair) String() string {
	return fmt.Sprintf("(%d, %d)", p.Head, p.Tail)
}
