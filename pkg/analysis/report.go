package analysis

import (
	"encoding/csv"
	"io"
	"slices"
	"strconv"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func writeRecords(w io.Writer, header []string, n int, record func(i int) []string) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range n {
		if err := cw.Write(record(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCardinalityTSV writes cardinality rows as a tab-separated table.
func WriteCardinalityTSV(w io.Writer, rows []CardinalityRow) error {
	header := []string{"relation_id", "relation_label", "relation_type", "support", "confidence"}
	return writeRecords(w, header, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			strconv.FormatUint(uint64(r.RelationID), 10),
			r.RelationLabel,
			string(r.Type),
			strconv.Itoa(r.Support),
			formatFloat(r.Confidence),
		}
	})
}

// WriteFunctionalityTSV writes functionality rows as a tab-separated table.
func WriteFunctionalityTSV(w io.Writer, rows []FunctionalityRow) error {
	header := []string{"relation_id", "relation_label", "functionality", "inverse_functionality"}
	return writeRecords(w, header, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			strconv.FormatUint(uint64(r.RelationID), 10),
			r.RelationLabel,
			formatFloat(r.Functionality),
			formatFloat(r.InverseFunctionality),
		}
	})
}

// WriteRelationCountsTSV writes one column per part followed by the total.
func WriteRelationCountsTSV(w io.Writer, parts []string, rows []RelationCountRow) error {
	header := append([]string{"relation_label"}, parts...)
	header = append(header, TotalPart)
	return writeRecords(w, header, len(rows), func(i int) []string {
		r := rows[i]
		record := []string{r.RelationLabel}
		for _, p := range parts {
			record = append(record, strconv.Itoa(r.Counts[p]))
		}
		return append(record, strconv.Itoa(r.Total))
	})
}

// WriteEntityCountsTSV writes head, tail and total columns for every part and the total.
func WriteEntityCountsTSV(w io.Writer, parts []string, rows []EntityCountRow) error {
	header := []string{"entity_label"}
	for _, p := range slices.Concat(parts, []string{TotalPart}) {
		header = append(header, p+".head", p+".tail", p+".total")
	}
	return writeRecords(w, header, len(rows), func(i int) []string {
		r := rows[i]
		record := []string{r.EntityLabel}
		appendCount := func(c HeadTailCount) {
			record = append(record, strconv.Itoa(c.Head), strconv.Itoa(c.Tail), strconv.Itoa(c.Total))
		}
		for _, p := range parts {
			appendCount(r.Counts[p])
		}
		appendCount(r.Total)
		return record
	})
}

// WriteCoOccurrenceTSV writes one row per (part, entity) with a head and a tail
// column for every relation. relations names the columns in relation id order.
func WriteCoOccurrenceTSV(w io.Writer, relations []string, rows []CoOccurrenceRow) error {
	header := []string{"part", "entity_id", "entity_label"}
	for _, r := range relations {
		header = append(header, r+".head", r+".tail")
	}
	return writeRecords(w, header, len(rows), func(i int) []string {
		r := rows[i]
		record := []string{r.Part, strconv.FormatUint(uint64(r.EntityID), 10), r.EntityLabel}
		for j := range relations {
			record = append(record, strconv.Itoa(r.Head[j]), strconv.Itoa(r.Tail[j]))
		}
		return record
	})
}
