package catalog

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance caps how far a suggestion may be from the input.
// Beyond this the name is treated as unknown rather than misspelled.
const maxSuggestDistance = 3

// closest returns the candidate with the smallest edit distance to name,
// or empty when nothing is within maxSuggestDistance. Comparison is
// case-insensitive; ties keep the first candidate in stable order.
func closest(name string, candidates []string) string {
	lower := strings.ToLower(name)
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(c))
		if d < bestDist {
			best = c
			bestDist = d
		}
	}
	if bestDist > maxSuggestDistance {
		return ""
	}
	return best
}
