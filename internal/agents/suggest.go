package agents

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestions caps "did you mean" guidance.
const maxSuggestions = 3

// ClosestMatches returns up to three roster names that plausibly meant
// unknown, closest first. Ties keep roster order.
//
// A name qualifies when its case-insensitive edit distance is within
// max(2, len(unknown)/3), or when one name contains the other.
func ClosestMatches(unknown string, roster []string) []string {
	needle := strings.ToLower(strings.TrimSpace(unknown))
	if needle == "" {
		return nil
	}

	threshold := len([]rune(needle)) / 3
	if threshold < 2 {
		threshold = 2
	}

	type candidate struct {
		name string
		dist int
	}
	var candidates []candidate
	for _, name := range roster {
		hay := strings.ToLower(name)
		dist := levenshtein.ComputeDistance(needle, hay)
		if dist <= threshold || strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			candidates = append(candidates, candidate{name: name, dist: dist})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	if len(candidates) > maxSuggestions {
		candidates = candidates[:maxSuggestions]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}
