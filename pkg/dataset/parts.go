package dataset

import (
	"fmt"
	"slices"
)

// NormalizeParts resolves the requested split names against ds.
// A nil or empty request selects every part. Unknown names are an error that
// names the closest valid part; repeated names are collapsed.
func NormalizeParts(ds Dataset, parts []string) ([]string, error) {
	available := ds.Parts()
	if len(parts) == 0 {
		return available, nil
	}
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if !slices.Contains(available, part) {
			if s, ok := Suggest(part, available); ok {
				return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownPart, part, s)
			}
			return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownPart, part, available)
		}
		if !slices.Contains(out, part) {
			out = append(out, part)
		}
	}
	return out, nil
}
