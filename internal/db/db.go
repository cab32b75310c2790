// Package db defines the vector store contract shared by the Redis/Valkey and
// Qdrant backends.
package db

import (
	"context"
	"time"
)

// Store is the vector store facade used by the composition root.
type Store interface {
	Pinger
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher runs KNN searches over a scope's vector index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
