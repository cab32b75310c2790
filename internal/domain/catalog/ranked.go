package catalog

import (
	"cmp"
	"slices"
)

// Ranked is a Candidate with its rescored and final scores.
type Ranked struct {
	Candidate

	// Score is the final score used for ordering.
	Score float64
	// RescoredScore is the score after soft rescoring, before any rerank blend.
	RescoredScore float64
	// RerankScore is the cross-encoder relevance, nil when rerank did not run.
	RerankScore *float64
}

// SortByScore orders items by Score descending, then by ID ascending.
func SortByScore(items []Ranked) {
	slices.SortFunc(items, func(a, b Ranked) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
