package dataset

import (
	"strings"

	"github.com/agext/levenshtein"
)

// minSuggestScore is the normalized similarity a candidate needs to be suggested.
const minSuggestScore = 0.5

// Suggest returns the candidate most similar to query, using a normalized
// Levenshtein score in [0, 1]. It returns false when nothing is close enough.
func Suggest(query string, candidates []string) (string, bool) {
	best, bestScore := "", 0.0
	q := strings.ToLower(query)
	for _, c := range candidates {
		score := similarity(q, strings.ToLower(c))
		// Prefix matches ("train" vs "training") are usually what the user meant.
		if strings.HasPrefix(strings.ToLower(c), q) && q != "" {
			score = max(score, 0.75)
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < minSuggestScore {
		return "", false
	}
	return best, true
}

func similarity(a, b string) float64 {
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.Distance(a, b, nil)
	score := 1.0 - float64(dist)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}
