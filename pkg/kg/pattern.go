package kg

import (
	"cmp"
	"fmt"
)

// Pattern names a logical pattern or cardinality type a relation can satisfy.
type Pattern string

const (
	Symmetry     Pattern = "symmetry"
	AntiSymmetry Pattern = "anti-symmetry"
	Inversion    Pattern = "inversion"
	Composition  Pattern = "composition"

	OneToOne   Pattern = "one-to-one"
	OneToMany  Pattern = "one-to-many"
	ManyToOne  Pattern = "many-to-one"
	ManyToMany Pattern = "many-to-many"
)

// LogicalPatterns are the patterns produced by relation classification.
var LogicalPatterns = []Pattern{Symmetry, AntiSymmetry, Inversion, Composition}

// CardinalityTypes are the four relation cardinality types.
var CardinalityTypes = []Pattern{OneToOne, OneToMany, ManyToOne, ManyToMany}

// ParsePattern validates a pattern name.
func ParsePattern(s string) (Pattern, error) {
	p := Pattern(s)
	switch p {
	case Symmetry, AntiSymmetry, Inversion, Composition,
		OneToOne, OneToMany, ManyToOne, ManyToMany:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPattern, s)
}

// PatternMatch is one finding: relation RelationID satisfies Pattern with the given
// support (number of distinct left-hand-side instantiations) and confidence in [0, 1].
type PatternMatch struct {
	RelationID uint32  `json:"relation_id"`
	Pattern    Pattern `json:"pattern"`
	Support    int     `json:"support"`
	Confidence float64 `json:"confidence"`
}

func (m PatternMatch) String() string {
	return fmt.Sprintf("%s(r=%d, support=%d, confidence=%.4f)", m.Pattern, m.RelationID, m.Support, m.Confidence)
}

// ComparePatternMatches orders by (pattern, relation, confidence, support).
// This is the result table order.
func ComparePatternMatches(a, b PatternMatch) int {
	if c := cmp.Compare(a.Pattern, b.Pattern); c != 0 {
		return c
	}
	if c := cmp.Compare(a.RelationID, b.RelationID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Confidence, b.Confidence); c != 0 {
		return c
	}
	return cmp.Compare(a.Support, b.Support)
}

// RelationPattern is a PatternMatch with support and confidence dropped.
type RelationPattern struct {
	RelationID uint32  `json:"relation_id"`
	Pattern    Pattern `json:"pattern"`
}
