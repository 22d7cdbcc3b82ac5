// Package dataset defines the narrow view of a knowledge-graph dataset that the
// analysis layer consumes, along with in-memory, TSV and BadgerDB backed implementations.
package dataset

import (
	"cmp"
	"context"
	"iter"
	"slices"

	"github.com/duynguyendang/relpat/pkg/kg"
)

// Conventional split names.
const (
	PartTraining   = "training"
	PartValidation = "validation"
	PartTesting    = "testing"
)

// Dataset exposes id-based triples per named part (split) and the id spaces.
type Dataset interface {
	// Name identifies the dataset; it is part of cache entry names.
	Name() string
	// Parts lists the available split names in a stable order.
	Parts() []string
	// Triples iterates over the triples of one part.
	Triples(ctx context.Context, part string) iter.Seq2[kg.Triple, error]
	NumEntities() int
	NumRelations() int
	// EntityLabel and RelationLabel return false when no label is known.
	EntityLabel(id uint32) (string, bool)
	RelationLabel(id uint32) (string, bool)
}

// MappedTriples concatenates the triples of the given parts in order.
// Parts must already be normalized.
func MappedTriples(ctx context.Context, ds Dataset, parts []string) ([]kg.Triple, error) {
	var out []kg.Triple
	for _, part := range parts {
		for t, err := range ds.Triples(ctx, part) {
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// Collect gathers one iterator into a slice. Stops on first error and returns it.
func Collect(seq iter.Seq2[kg.Triple, error]) ([]kg.Triple, error) {
	var out []kg.Triple
	for t, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// orderParts sorts split names with the conventional splits first.
func orderParts(parts []string) []string {
	rank := func(p string) int {
		switch p {
		case PartTraining:
			return 0
		case PartValidation:
			return 1
		case PartTesting:
			return 2
		}
		return 3
	}
	out := slices.Clone(parts)
	slices.SortFunc(out, func(a, b string) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return cmp.Compare(a, b)
	})
	return out
}
