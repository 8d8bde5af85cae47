package util

import (
	"sort"
	"strings"
)

// LevenshteinDistance returns the number of single-character edits
// (insertions, deletions, substitutions) needed to turn a into b.
func LevenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// SuggestSimilar returns the candidates closer than maxDistance edits to
// input, nearest first. Comparison ignores case.
func SuggestSimilar(input string, candidates []string, maxDistance int) []string {
	if input == "" || len(candidates) == 0 {
		return nil
	}

	type match struct {
		name     string
		distance int
	}
	var matches []match
	lower := strings.ToLower(input)
	for _, c := range candidates {
		if d := LevenshteinDistance(lower, strings.ToLower(c)); d < maxDistance {
			matches = append(matches, match{c, d})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})
	result := make([]string, len(matches))
	for i, m := range matches {
		result[i] = m.name
	}
	return result
}
