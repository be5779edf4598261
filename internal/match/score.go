// Package match scores candidate metadata records against bibliography
// entries and selects the authoritative one, if any.
package match

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// Score computes a similarity score in [0,1] between two normalized strings.
// Symmetric, 1.0 for identical inputs. Edit distance is computed on the raw
// form and on a token-sorted form, and the better of the two wins, so word
// reordering ("subtitle a title" vs "a title subtitle") is not penalized.
func Score(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	direct := levenshtein.Similarity(a, b, nil)
	sorted := levenshtein.Similarity(sortTokens(a), sortTokens(b), nil)
	if sorted > direct {
		return sorted
	}
	return direct
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
