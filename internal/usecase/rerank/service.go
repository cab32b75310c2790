// Package rerank blends cross-encoder relevance into a rescored ranking.
package rerank

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	"github.com/kailas-cloud/catalograg/internal/logger"
)

// Blend weights of the final score.
const (
	RescoredWeight = 0.5
	RerankWeight   = 0.5
)

// Service reranks a ranking with an external cross-encoder.
type Service struct {
	scorer   Scorer
	topK     int
	timeout  time.Duration
	requests *prometheus.CounterVec
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRequestsCounter records rerank outcomes on a counter vec with a "status" label.
func WithRequestsCounter(c *prometheus.CounterVec) Option {
	return func(s *Service) { s.requests = c }
}

// NewService creates a rerank service. topK <= 0 disables truncation,
// timeout 0 disables the per-call deadline.
func NewService(scorer Scorer, topK int, timeout time.Duration, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{scorer: scorer, topK: topK, timeout: timeout, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rerank blends rerank scores into ranked, re-sorts and truncates to top-K.
// On any failure it returns ranked unchanged with an error wrapping
// domain.ErrRerankFailed; callers keep the returned ranking either way.
func (s *Service) Rerank(ctx context.Context, query string, ranked []catalog.Ranked) ([]catalog.Ranked, error) {
	if len(ranked) == 0 {
		return ranked, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	docs := make([]string, len(ranked))
	for i := range ranked {
		docs[i] = Document(ranked[i].Candidate)
	}

	scores, err := s.scorer.Score(ctx, query, docs)
	if err == nil && len(scores) != len(ranked) {
		err = fmt.Errorf("got %d scores for %d documents", len(scores), len(ranked))
	}
	if err != nil {
		s.inc("error")
		logger.FromContextOr(ctx, s.logger).Warn("Rerank failed, keeping rescored order", zap.Error(err))
		return ranked, fmt.Errorf("%w: %w", domain.ErrRerankFailed, err)
	}

	out := slices.Clone(ranked)
	for i := range out {
		rs := scores[i]
		out[i].RerankScore = &rs
		out[i].Score = RescoredWeight*out[i].RescoredScore + RerankWeight*rs
	}
	catalog.SortByScore(out)
	if s.topK > 0 && len(out) > s.topK {
		out = out[:s.topK]
	}
	s.inc("success")
	return out, nil
}

func (s *Service) inc(status string) {
	if s.requests != nil {
		s.requests.WithLabelValues(status).Inc()
	}
}

// Document flattens a candidate into the text sent to the cross-encoder.
func Document(c catalog.Candidate) string {
	var b strings.Builder
	b.WriteString(c.Title)
	if c.Description != "" {
		b.WriteString(". ")
		b.WriteString(c.Description)
	}

	a := c.Attributes
	attr := func(name, value string) {
		if value != "" {
			b.WriteString(" | ")
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(value)
		}
	}
	attr("category", a.Category)
	attr("brand", a.Brand)
	attr("color", a.Color)
	attr("material", a.Material)
	attr("season", a.Season)
	attr("gender", a.Gender)
	attr("sizes", strings.Join(a.Sizes, ", "))
	if a.Price != nil {
		attr("price", strconv.FormatFloat(*a.Price, 'f', 2, 64))
	}
	return b.String()
}
