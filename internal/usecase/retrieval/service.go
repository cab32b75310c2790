// Package retrieval orchestrates embedding, attribute extraction, vector
// search, rescoring and reranking into a ranked context for a query.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/catalograg/internal/cache"
	"github.com/kailas-cloud/catalograg/internal/domain"
	attrs "github.com/kailas-cloud/catalograg/internal/domain/attributes"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	"github.com/kailas-cloud/catalograg/internal/domain/search/request"
	"github.com/kailas-cloud/catalograg/internal/logger"
	"github.com/kailas-cloud/catalograg/internal/metrics"
	"github.com/kailas-cloud/catalograg/internal/usecase/rescore"
)

// Pipeline stages, used as metric labels and degradation sources.
const (
	StageEmbed   = "embed"
	StageExtract = "extract"
	StageSearch  = "search"
	StageRescore = "rescore"
	StageRerank  = "rerank"
)

// Defaults applied to zero Config fields.
const (
	DefaultPoolSize      = 100
	DefaultLimit         = 50
	DefaultDisplayCount  = 10
	DefaultSearchTimeout = 5 * time.Second
)

// Config holds the immutable pipeline settings.
type Config struct {
	PoolSize      int
	Limit         int
	DisplayCount  int
	SearchTimeout time.Duration
	// SweepInterval is the cache sweep period, 0 disables background sweeps.
	SweepInterval time.Duration
	Weights       rescore.Weights
}

func (c *Config) applyDefaults() {
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.DisplayCount <= 0 {
		c.DisplayCount = DefaultDisplayCount
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = DefaultSearchTimeout
	}
}

// Stats reports both pipeline caches.
type Stats struct {
	Embeddings cache.Stats
	Attributes cache.Stats
}

// Option configures a Service.
type Option func(*Service)

// WithReranker enables the rerank stage.
func WithReranker(r Reranker) Option {
	return func(s *Service) { s.reranker = r }
}

// WithAttributeExtractor enables attribute extraction.
func WithAttributeExtractor(x AttributeExtractor) Option {
	return func(s *Service) { s.extractor = x }
}

// WithMetrics records stage latencies, outcomes and degradations.
func WithMetrics(m *metrics.Pipeline) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDegradations publishes every soft failure to ch. Sends never block:
// events are dropped when ch is full.
func WithDegradations(ch chan<- Degradation) Option {
	return func(s *Service) { s.degradations = ch }
}

// Service is a retrieval pipeline. It owns its caches for its lifetime.
type Service struct {
	cfg          Config
	embedder     QueryEmbedder
	searcher     CatalogSearcher
	extractor    AttributeExtractor
	reranker     Reranker
	metrics      *metrics.Pipeline
	degradations chan<- Degradation
	logger       *zap.Logger

	stopSweep context.CancelFunc
	sweepers  sync.WaitGroup
	closeOnce sync.Once
}

// New creates a pipeline and starts its cache sweepers. Call Close to stop them.
func New(cfg Config, embedder QueryEmbedder, searcher CatalogSearcher, logger *zap.Logger, opts ...Option) *Service {
	cfg.applyDefaults()
	s := &Service{
		cfg:      cfg,
		embedder: embedder,
		searcher: searcher,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweep = cancel
	if cfg.SweepInterval > 0 {
		s.sweep(ctx, s.embedder)
		if s.extractor != nil {
			s.sweep(ctx, s.extractor)
		}
	}
	return s
}

func (s *Service) sweep(ctx context.Context, c CachedCollaborator) {
	s.sweepers.Add(1)
	go func() {
		defer s.sweepers.Done()
		c.Run(ctx, s.cfg.SweepInterval)
	}()
}

// Close stops the cache sweepers and waits for them to exit.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.stopSweep()
		s.sweepers.Wait()
	})
}

// CacheStats returns counters of both caches.
func (s *Service) CacheStats() Stats {
	st := Stats{Embeddings: s.embedder.Stats()}
	if s.extractor != nil {
		st.Attributes = s.extractor.Stats()
	}
	return st
}

// ClearCache empties both caches and resets their counters.
func (s *Service) ClearCache() {
	s.embedder.Clear()
	if s.extractor != nil {
		s.extractor.Clear()
	}
}

// RetrieveContext runs the full pipeline for req. Embedding and search failures
// abort the request; extraction and rerank failures degrade it.
func (s *Service) RetrieveContext(ctx context.Context, req request.Request) (Result, error) {
	start := time.Now()
	log := logger.FromContextOr(ctx, s.logger)

	requestID := logger.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var (
		vector       []float32
		query        attrs.Query
		extractErr   error
		degradations []Degradation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer s.observe(StageEmbed, time.Now())
		res, err := s.embedder.Embed(gctx, req.Query())
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		vector = res.Embedding
		return nil
	})
	if s.extractor != nil {
		g.Go(func() error {
			defer s.observe(StageExtract, time.Now())
			// Soft: the returned Query is unconstrained on failure.
			query, extractErr = s.extractor.Extract(gctx, req.Query())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.count("error")
		return Result{}, err
	}
	if extractErr != nil {
		degradations = append(degradations, s.degrade(ctx, log, requestID, StageExtract, extractErr))
	}

	candidates, err := s.search(ctx, req, vector)
	if err != nil {
		s.count("error")
		return Result{}, err
	}

	rescoreStart := time.Now()
	ranked := rescore.Rescore(candidates, query, s.cfg.Weights)
	s.observe(StageRescore, rescoreStart)

	reranked := false
	if s.reranker != nil && !req.SkipRerank() && len(ranked) > 0 {
		rerankStart := time.Now()
		out, rerr := s.reranker.Rerank(ctx, req.Query(), ranked)
		s.observe(StageRerank, rerankStart)
		if rerr != nil {
			degradations = append(degradations, s.degrade(ctx, log, requestID, StageRerank, rerr))
		} else {
			reranked = true
		}
		ranked = out
	}

	if !req.IncludeUnavailable() {
		ranked = inStock(ranked)
	}

	display := s.cfg.DisplayCount
	if req.DisplayCount() > 0 {
		display = req.DisplayCount()
	}
	if len(ranked) > display {
		ranked = ranked[:display]
	}

	s.count("success")
	result := format(ranked, Metadata{
		RequestID:       requestID,
		Query:           req.Query(),
		Scope:           req.Scope(),
		Attributes:      query.Fields(),
		TotalCandidates: len(candidates),
		Reranked:        reranked,
		Degradations:    degradations,
		DurationMs:      time.Since(start).Milliseconds(),
	})

	log.Debug("Retrieval completed",
		zap.String("scope", req.Scope()),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", result.Metadata.Returned),
		zap.Bool("reranked", reranked),
		zap.Int("degradations", len(degradations)),
	)
	return result, nil
}

func (s *Service) search(ctx context.Context, req request.Request, vector []float32) ([]catalog.Candidate, error) {
	defer s.observe(StageSearch, time.Now())

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SearchTimeout)
	defer cancel()

	poolSize := s.cfg.PoolSize
	if req.PoolSize() > 0 {
		poolSize = req.PoolSize()
	}
	limit := s.cfg.Limit
	if req.Limit() > 0 {
		limit = req.Limit()
	}

	candidates, err := s.searcher.Search(ctx, catalog.SearchRequest{
		Scope:    req.Scope(),
		Vector:   vector,
		Filters:  req.Filters(),
		PoolSize: poolSize,
		Limit:    limit,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrVectorSearch) {
			err = fmt.Errorf("%w: %w", domain.ErrVectorSearch, err)
		}
		return nil, err
	}
	return candidates, nil
}

func (s *Service) degrade(ctx context.Context, log *zap.Logger, requestID, stage string, err error) Degradation {
	d := Degradation{RequestID: requestID, Stage: stage, Message: err.Error(), Err: err}
	log.Warn("Retrieval degraded", zap.String("stage", stage), zap.Error(err))
	if s.metrics != nil {
		s.metrics.DegradationsTotal.WithLabelValues(stage).Inc()
	}
	if s.degradations != nil {
		select {
		case s.degradations <- d:
		case <-ctx.Done():
		default:
		}
	}
	return d
}

func (s *Service) observe(stage string, start time.Time) {
	if s.metrics != nil {
		s.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (s *Service) count(status string) {
	if s.metrics != nil {
		s.metrics.RetrievalsTotal.WithLabelValues(status).Inc()
	}
}

func inStock(ranked []catalog.Ranked) []catalog.Ranked {
	out := make([]catalog.Ranked, 0, len(ranked))
	for _, r := range ranked {
		if r.InStock {
			out = append(out, r)
		}
	}
	return out
}
