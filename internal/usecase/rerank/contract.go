package rerank

import "context"

// Scorer scores documents against a query. Scores are returned in input order.
type Scorer interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}
