package db

import "github.com/kailas-cloud/catalograg/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	// IndexName is the FT index (Redis) or collection (Qdrant) of a scope.
	IndexName string
	Filters   filter.Expression
	Vector    []float32
	// K is the number of nearest neighbours returned.
	K int
	// EF is the HNSW candidate pool explored at query time, 0 for the index default.
	EF           int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit with its similarity score and flattened payload.
// Multi-valued payload fields are joined with ListSeparator.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// ListSeparator joins multi-valued fields in SearchEntry.Fields.
const ListSeparator = ","
