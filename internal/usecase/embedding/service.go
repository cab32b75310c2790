// Package embedding acquires query embeddings through a bounded TTL cache.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/catalograg/internal/cache"
	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/logger"
)

// CacheName labels the embedding cache in metrics.
const CacheName = "embeddings"

// Key identifies a cached embedding.
type Key struct {
	Model string
	Text  string
}

// NewKey builds a cache key from the model identifier and normalized text.
func NewKey(model, text string) Key {
	return Key{Model: model, Text: NormalizeText(text)}
}

// NormalizeText trims text and collapses internal whitespace runs to one space.
// Case is preserved: embeddings are case sensitive.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Service is a cache-or-fetch embedder. It implements domain.Embedder.
type Service struct {
	inner   domain.Embedder
	model   string
	cache   *cache.Cache[Key, []float32]
	timeout time.Duration
	group   singleflight.Group
	logger  *zap.Logger
}

// NewService wraps inner with the given cache. timeout bounds each provider
// call, 0 disables it.
func NewService(
	inner domain.Embedder, model string,
	c *cache.Cache[Key, []float32], timeout time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		inner:   inner,
		model:   model,
		cache:   c,
		timeout: timeout,
		logger:  logger,
	}
}

// Embed returns the cached vector for text or calls the provider exactly once
// and caches the result. Provider failures and empty vectors are never cached.
// The returned vector is shared with the cache and must not be modified.
func (s *Service) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := NewKey(s.model, text)

	if vec, ok := s.cache.Get(key); ok {
		logger.FromContextOr(ctx, s.logger).Debug("Embedding cache hit", zap.String("model", s.model))
		return domain.EmbeddingResult{Embedding: vec, Cached: true}, nil
	}

	// Concurrent misses on one key share a single provider call. The shared
	// call outlives any one caller and is bounded by s.timeout only.
	ch := s.group.DoChan(key.Model+"\x00"+key.Text, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), key)
	})
	select {
	case <-ctx.Done():
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.EmbeddingResult{}, res.Err //nolint:wrapcheck // already wrapped in fetch
		}
		return res.Val.(domain.EmbeddingResult), nil
	}
}

func (s *Service) fetch(ctx context.Context, key Key) (domain.EmbeddingResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.inner.Embed(ctx, key.Text)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingProviderError) {
			err = domain.NewEmbeddingProviderError(s.model, 0, "embedding request failed", err)
		}
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	}
	if len(result.Embedding) == 0 {
		return domain.EmbeddingResult{}, domain.NewEmbeddingProviderError(s.model, 0, "empty embedding", nil)
	}

	vec := slices.Clone(result.Embedding)
	s.cache.Put(key, vec)
	result.Embedding = vec
	return result, nil
}

// Stats returns the embedding cache counters.
func (s *Service) Stats() cache.Stats { return s.cache.Stats() }

// Run sweeps expired embedding entries every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) { s.cache.Run(ctx, interval) }

// Clear drops every cached embedding and resets counters.
func (s *Service) Clear() { s.cache.Clear() }

// HealthCheck delegates to the provider when it supports health checks.
func (s *Service) HealthCheck(ctx context.Context) error {
	if hc, ok := s.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through
	}
	return nil
}
