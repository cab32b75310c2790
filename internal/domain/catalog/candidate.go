// Package catalog holds request-scoped catalog items returned by vector search.
package catalog

import (
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
)

// Attributes are the matchable properties of a catalog item.
type Attributes struct {
	Category string
	Brand    string
	Color    string
	Material string
	Season   string
	Gender   string
	Sizes    []string
	Price    *float64
}

// Metrics are optional business signals used as rescoring boosts.
type Metrics struct {
	Popularity *float64
	CTR        *float64
	Sales      *int64
}

// Candidate is an item returned by vector search with its base similarity score.
type Candidate struct {
	ID          string
	Type        string
	Title       string
	Description string
	BaseScore   float64
	Attributes  Attributes
	InStock     bool
	Metrics     Metrics
}

// SearchRequest is the input of a catalog KNN search.
type SearchRequest struct {
	Scope    string
	Vector   []float32
	Filters  filter.Expression
	PoolSize int // KNN candidate pool (ef)
	Limit    int
}
