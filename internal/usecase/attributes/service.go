// Package attributes extracts structured shopping attributes from free-text
// queries through a bounded TTL cache.
package attributes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/cache"
	"github.com/kailas-cloud/catalograg/internal/domain"
	attrs "github.com/kailas-cloud/catalograg/internal/domain/attributes"
	"github.com/kailas-cloud/catalograg/internal/logger"
)

// CacheName labels the attribute cache in metrics.
const CacheName = "attributes"

// Status label values for the extraction counter.
const (
	statusSuccess = "success"
	statusError   = "error"
	statusCached  = "cached"
)

// Service is a cache-or-fetch attribute extractor.
type Service struct {
	extractor Extractor
	cache     *cache.Cache[string, attrs.Query]
	timeout   time.Duration
	requests  *prometheus.CounterVec
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRequestsCounter records extraction outcomes on a counter vec with a "status" label.
func WithRequestsCounter(c *prometheus.CounterVec) Option {
	return func(s *Service) { s.requests = c }
}

// NewService creates an attribute extraction service. timeout bounds each
// extractor call, 0 disables it.
func NewService(
	extractor Extractor, c *cache.Cache[string, attrs.Query],
	timeout time.Duration, logger *zap.Logger, opts ...Option,
) *Service {
	s := &Service{
		extractor: extractor,
		cache:     c,
		timeout:   timeout,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheKey returns the attribute cache key for a query.
func CacheKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Extract returns the normalized attributes for query. On failure it returns an
// unconstrained Query together with an error wrapping domain.ErrExtractionFailed;
// callers may continue with the empty Query. Failures are not cached.
func (s *Service) Extract(ctx context.Context, query string) (attrs.Query, error) {
	key := CacheKey(query)
	if key == "" {
		return attrs.Query{}, nil
	}

	if q, ok := s.cache.Get(key); ok {
		s.inc(statusCached)
		logger.FromContextOr(ctx, s.logger).Debug("Attribute cache hit")
		return q, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.extractor.Extract(ctx, query, attrs.AllowedFields)
	if err != nil {
		s.inc(statusError)
		return attrs.Query{}, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}

	q := Normalize(raw)
	s.cache.Put(key, q)
	s.inc(statusSuccess)
	return q, nil
}

// Stats returns the attribute cache counters.
func (s *Service) Stats() cache.Stats { return s.cache.Stats() }

// Run sweeps expired attribute entries every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) { s.cache.Run(ctx, interval) }

// Clear drops every cached attribute record and resets counters.
func (s *Service) Clear() { s.cache.Clear() }

func (s *Service) inc(status string) {
	if s.requests != nil {
		s.requests.WithLabelValues(status).Inc()
	}
}
