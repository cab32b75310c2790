package catalograg

import "github.com/kailas-cloud/catalograg/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrScopeRequired          = domain.ErrScopeRequired
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrVectorSearch           = domain.ErrVectorSearch
	ErrExtractionFailed       = domain.ErrExtractionFailed
	ErrRerankFailed           = domain.ErrRerankFailed
)

// EmbeddingProviderError carries the provider name and upstream status of a
// failed embedding call. Use errors.As() to inspect it.
type EmbeddingProviderError = domain.EmbeddingProviderError
