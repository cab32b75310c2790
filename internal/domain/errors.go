package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest signals a malformed retrieval request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrScopeRequired signals a request without a scoping identifier.
	ErrScopeRequired = errors.New("scope is required")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmbeddingProviderError signals an embedding provider failure. Hard: aborts retrieval.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorSearch signals a catalog search failure. Hard: aborts retrieval.
	ErrVectorSearch = errors.New("vector search failed")

	// ErrExtractionFailed signals an attribute extraction failure. Soft.
	ErrExtractionFailed = errors.New("attribute extraction failed")
	// ErrRerankFailed signals a reranker failure. Soft.
	ErrRerankFailed = errors.New("rerank failed")
)

// EmbeddingProviderError carries the provider status and message of a failed
// embedding call. It matches ErrEmbeddingProviderError and the underlying cause
// via errors.Is.
type EmbeddingProviderError struct {
	Provider string
	Status   int // HTTP status, 0 for transport errors
	Message  string
	Err      error
}

func (e *EmbeddingProviderError) Error() string {
	msg := ErrEmbeddingProviderError.Error()
	if e.Provider != "" {
		msg += " (" + e.Provider + ")"
	}
	if e.Status > 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *EmbeddingProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEmbeddingProviderError}
	}
	return []error{ErrEmbeddingProviderError, e.Err}
}

// NewEmbeddingProviderError creates an embedding provider error.
func NewEmbeddingProviderError(provider string, status int, message string, cause error) error {
	return &EmbeddingProviderError{Provider: provider, Status: status, Message: message, Err: cause}
}
