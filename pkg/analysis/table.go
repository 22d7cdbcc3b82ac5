package analysis

import (
	"encoding/csv"
	"io"
	"slices"
	"strconv"

	"github.com/duynguyendang/relpat/pkg/kg"
)

// PatternTable is the result of ClassifyRelations.
// Exactly one of Matches and Patterns is set, depending on DropConfidence.
type PatternTable struct {
	Dataset  string   `json:"dataset"`
	Parts    []string `json:"parts"`
	CacheKey string   `json:"cache_key"`
	Cached   bool     `json:"cached"`

	Matches  []kg.PatternMatch    `json:"matches,omitempty"`
	Patterns []kg.RelationPattern `json:"patterns,omitempty"`

	RelationLabels map[uint32]string `json:"relation_labels,omitempty"`
}

// Prune keeps matches with support >= minSupport and confidence >= minConfidence.
// The input is not modified.
func Prune(matches []kg.PatternMatch, minSupport int, minConfidence float64) []kg.PatternMatch {
	out := make([]kg.PatternMatch, 0, len(matches))
	for _, m := range matches {
		if m.Support >= minSupport && m.Confidence >= minConfidence {
			out = append(out, m)
		}
	}
	return out
}

// DistinctPatterns drops support and confidence and keeps the first occurrence
// of every (relation, pattern) pair.
func DistinctPatterns(matches []kg.PatternMatch) []kg.RelationPattern {
	seen := make(map[kg.RelationPattern]struct{}, len(matches))
	out := make([]kg.RelationPattern, 0, len(matches))
	for _, m := range matches {
		rp := kg.RelationPattern{RelationID: m.RelationID, Pattern: m.Pattern}
		if _, ok := seen[rp]; ok {
			continue
		}
		seen[rp] = struct{}{}
		out = append(out, rp)
	}
	return out
}

func (t *PatternTable) setMatches(matches []kg.PatternMatch, dropConfidence bool) {
	if dropConfidence {
		t.Matches = nil
		t.Patterns = DistinctPatterns(matches)
		return
	}
	t.Matches = matches
	t.Patterns = nil
}

// Len returns the number of rows.
func (t *PatternTable) Len() int {
	if t.Patterns != nil {
		return len(t.Patterns)
	}
	return len(t.Matches)
}

func (t *PatternTable) relationIDs() []uint32 {
	var ids []uint32
	for _, m := range t.Matches {
		ids = append(ids, m.RelationID)
	}
	for _, p := range t.Patterns {
		ids = append(ids, p.RelationID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// WriteTSV writes the table with a header row. A relation_label column follows
// relation_id when labels are attached; support and confidence are present
// unless they were dropped.
func (t *PatternTable) WriteTSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	labeled := t.RelationLabels != nil
	header := []string{"relation_id"}
	if labeled {
		header = append(header, "relation_label")
	}
	header = append(header, "pattern")
	full := t.Patterns == nil
	if full {
		header = append(header, "support", "confidence")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	write := func(id uint32, pattern kg.Pattern, extra ...string) error {
		record := []string{strconv.FormatUint(uint64(id), 10)}
		if labeled {
			record = append(record, t.RelationLabels[id])
		}
		record = append(record, string(pattern))
		return cw.Write(append(record, extra...))
	}
	if full {
		for _, m := range t.Matches {
			if err := write(m.RelationID, m.Pattern,
				strconv.Itoa(m.Support),
				strconv.FormatFloat(m.Confidence, 'g', -1, 64),
			); err != nil {
				return err
			}
		}
	} else {
		for _, p := range t.Patterns {
			if err := write(p.RelationID, p.Pattern); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
