package analysis

import (
	"strconv"

	"github.com/duynguyendang/relpat/pkg/dataset"
)

// relationLabels looks up the labels of ids. Unlabeled ids are omitted.
func relationLabels(ds dataset.Dataset, ids []uint32) map[uint32]string {
	labels := make(map[uint32]string, len(ids))
	for _, id := range ids {
		if l, ok := ds.RelationLabel(id); ok {
			labels[id] = l
		}
	}
	return labels
}

func relationName(ds dataset.Dataset, id uint32) string {
	if l, ok := ds.RelationLabel(id); ok {
		return l
	}
	return strconv.FormatUint(uint64(id), 10)
}

func entityName(ds dataset.Dataset, id uint32) string {
	if l, ok := ds.EntityLabel(id); ok {
		return l
	}
	return strconv.FormatUint(uint64(id), 10)
}

// RelationNames returns the label of every relation id, or the decimal id when unlabeled.
func RelationNames(ds dataset.Dataset) []string {
	names := make([]string, ds.NumRelations())
	for id := range names {
		names[id] = relationName(ds, uint32(id))
	}
	return names
}
