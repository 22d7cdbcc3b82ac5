package kg

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// TableColumns is the header of a serialized pattern table.
var TableColumns = []string{"relation_id", "pattern", "support", "confidence"}

// WriteTable writes matches as a tab-separated table with a header row.
// Confidence is formatted with the shortest representation that round-trips exactly.
func WriteTable(w io.Writer, matches []PatternMatch) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(TableColumns); err != nil {
		return err
	}
	record := make([]string, len(TableColumns))
	for _, m := range matches {
		record[0] = strconv.FormatUint(uint64(m.RelationID), 10)
		record[1] = string(m.Pattern)
		record[2] = strconv.Itoa(m.Support)
		record[3] = strconv.FormatFloat(m.Confidence, 'g', -1, 64)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable parses a table written by WriteTable.
// Columns are located by header name, so extra columns are ignored.
func ReadTable(r io.Reader) ([]PatternMatch, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrMalformedTable)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[name] = i
	}
	idx := make([]int, len(TableColumns))
	for i, name := range TableColumns {
		p, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedTable, name)
		}
		idx[i] = p
	}

	var out []PatternMatch
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedTable, line, err)
		}
		m, err := parseRow(record, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedTable, line, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func parseRow(record []string, idx []int) (PatternMatch, error) {
	rid, err := strconv.ParseUint(record[idx[0]], 10, 32)
	if err != nil {
		return PatternMatch{}, fmt.Errorf("relation_id: %w", err)
	}
	pattern, err := ParsePattern(record[idx[1]])
	if err != nil {
		return PatternMatch{}, err
	}
	support, err := strconv.Atoi(record[idx[2]])
	if err != nil {
		return PatternMatch{}, fmt.Errorf("support: %w", err)
	}
	if support < 0 {
		return PatternMatch{}, fmt.Errorf("support: negative value %d", support)
	}
	conf, err := strconv.ParseFloat(record[idx[3]], 64)
	if err != nil {
		return PatternMatch{}, fmt.Errorf("confidence: %w", err)
	}
	if conf < 0 || conf > 1 {
		return PatternMatch{}, fmt.Errorf("confidence: %v out of range", conf)
	}
	return PatternMatch{
		RelationID: uint32(rid),
		Pattern:    pattern,
		Support:    support,
		Confidence: conf,
	}, nil
}
