package catalograg

import (
	"time"

	"github.com/kailas-cloud/catalograg/internal/usecase/rescore"
)

// RetrieveOptions are the per-request retrieval parameters.
// Zero sizes use the client defaults.
type RetrieveOptions struct {
	// Scope selects the catalog (tenant) to search. Required.
	Scope              string
	Filters            FilterExpression
	PoolSize           int
	Limit              int
	DisplayCount       int
	IncludeUnavailable bool
	SkipRerank         bool
}

// Result is the formatted retrieval output.
type Result struct {
	// Content is the plain-text listing of returned items.
	Content  string
	Sources  []Source
	Metadata Metadata
}

// Source is one returned catalog item.
type Source struct {
	ID       string
	Score    float64
	Title    string
	Type     string
	Category string
	Brand    string
	Color    string
	Price    *float64
	InStock  bool
}

// Metadata describes how a result was produced.
type Metadata struct {
	RequestID        string
	Query            string
	Scope            string
	Attributes       map[string]string
	TotalCandidates  int
	Returned         int
	Reranked         bool
	CountsByType     map[string]int
	CountsByCategory map[string]int
	TopPreview       []string
	Degradations     []Degradation
	Duration         time.Duration
}

// Degradation records a soft failure that did not abort a retrieval.
type Degradation struct {
	RequestID string
	Stage     string
	Message   string
	Err       error
}

// CacheStats is a snapshot of one cache.
type CacheStats struct {
	Size      int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// PipelineCacheStats reports both pipeline caches.
type PipelineCacheStats struct {
	Embeddings CacheStats
	Attributes CacheStats
}

// FilterExpression is a set of must/must_not filter conditions.
type FilterExpression struct {
	Must    []FilterCondition
	MustNot []FilterCondition
}

// FilterCondition is a single filter clause.
type FilterCondition struct {
	Key   string
	Match string       // non-empty for exact match
	Range *RangeFilter // non-nil for numeric range
}

// RangeFilter defines numeric range boundaries.
type RangeFilter struct {
	GT  *float64
	GTE *float64
	LT  *float64
	LTE *float64
}

// Weights are the rescoring boosts per attribute match and engagement signal.
type Weights = rescore.Weights

// DefaultWeights returns the weights used unless WithWeights is given.
func DefaultWeights() Weights { return rescore.DefaultWeights() }
