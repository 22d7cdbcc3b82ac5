package dataset

import (
	"context"
	"fmt"
	"iter"

	"github.com/duynguyendang/relpat/pkg/kg"
)

// Memory is a Dataset held entirely in memory.
type Memory struct {
	name           string
	parts          map[string][]kg.Triple
	order          []string
	numEntities    int
	numRelations   int
	entityLabels   []string
	relationLabels []string
}

// MemoryOption customizes a Memory dataset.
type MemoryOption func(*Memory)

// WithEntityLabels sets the id -> label mapping for entities (index = id).
func WithEntityLabels(labels []string) MemoryOption {
	return func(m *Memory) { m.entityLabels = labels }
}

// WithRelationLabels sets the id -> label mapping for relations (index = id).
func WithRelationLabels(labels []string) MemoryOption {
	return func(m *Memory) { m.relationLabels = labels }
}

// WithIDSpaces overrides the entity and relation counts, which otherwise are
// derived from the largest id seen.
func WithIDSpaces(numEntities, numRelations int) MemoryOption {
	return func(m *Memory) {
		m.numEntities = numEntities
		m.numRelations = numRelations
	}
}

// NewMemory creates an in-memory dataset from split name -> triples.
func NewMemory(name string, parts map[string][]kg.Triple, opts ...MemoryOption) *Memory {
	m := &Memory{
		name:  name,
		parts: make(map[string][]kg.Triple, len(parts)),
	}
	names := make([]string, 0, len(parts))
	for part, triples := range parts {
		m.parts[part] = triples
		names = append(names, part)
		for _, t := range triples {
			m.numEntities = max(m.numEntities, int(t.Head)+1, int(t.Tail)+1)
			m.numRelations = max(m.numRelations, int(t.Relation)+1)
		}
	}
	m.order = orderParts(names)
	for _, opt := range opts {
		opt(m)
	}
	m.numEntities = max(m.numEntities, len(m.entityLabels))
	m.numRelations = max(m.numRelations, len(m.relationLabels))
	return m
}

func (m *Memory) Name() string { return m.name }

func (m *Memory) Parts() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *Memory) Triples(ctx context.Context, part string) iter.Seq2[kg.Triple, error] {
	return func(yield func(kg.Triple, error) bool) {
		triples, ok := m.parts[part]
		if !ok {
			yield(kg.Triple{}, fmt.Errorf("%w: %q", ErrUnknownPart, part))
			return
		}
		for i, t := range triples {
			if i%4096 == 0 && ctx.Err() != nil {
				yield(kg.Triple{}, ctx.Err())
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

func (m *Memory) NumEntities() int  { return m.numEntities }
func (m *Memory) NumRelations() int { return m.numRelations }

func (m *Memory) EntityLabel(id uint32) (string, bool) {
	return lookupLabel(m.entityLabels, id)
}

func (m *Memory) RelationLabel(id uint32) (string, bool) {
	return lookupLabel(m.relationLabels, id)
}

// RelationLabels returns the relation labels indexed by id, or nil.
func (m *Memory) RelationLabels() []string { return m.relationLabels }

// EntityLabels returns the entity labels indexed by id, or nil.
func (m *Memory) EntityLabels() []string { return m.entityLabels }

func lookupLabel(labels []string, id uint32) (string, bool) {
	if int(id) >= len(labels) {
		return "", false
	}
	return labels[id], true
}
