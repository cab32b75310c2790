package retrieval

import (
	"context"
	"time"

	"github.com/kailas-cloud/catalograg/internal/cache"
	"github.com/kailas-cloud/catalograg/internal/domain"
	attrs "github.com/kailas-cloud/catalograg/internal/domain/attributes"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
)

// CatalogSearcher runs a scoped KNN search over the catalog.
// Errors wrap domain.ErrVectorSearch.
type CatalogSearcher interface {
	Search(ctx context.Context, req catalog.SearchRequest) ([]catalog.Candidate, error)
}

// CachedCollaborator is a collaborator backed by an owned TTL cache.
type CachedCollaborator interface {
	Stats() cache.Stats
	Clear()
	Run(ctx context.Context, interval time.Duration)
}

// QueryEmbedder returns the embedding of a query.
type QueryEmbedder interface {
	CachedCollaborator
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// AttributeExtractor returns the structured attributes of a query. On failure
// it returns an unconstrained Query and an error wrapping domain.ErrExtractionFailed.
type AttributeExtractor interface {
	CachedCollaborator
	Extract(ctx context.Context, query string) (attrs.Query, error)
}

// Reranker blends cross-encoder relevance into a ranking. On failure it
// returns the input ranking and an error wrapping domain.ErrRerankFailed.
type Reranker interface {
	Rerank(ctx context.Context, query string, ranked []catalog.Ranked) ([]catalog.Ranked, error)
}
