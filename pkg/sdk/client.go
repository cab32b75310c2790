package catalograg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/cache"
	"github.com/kailas-cloud/catalograg/internal/db"
	dbQdrant "github.com/kailas-cloud/catalograg/internal/db/qdrant"
	dbRedis "github.com/kailas-cloud/catalograg/internal/db/redis"
	"github.com/kailas-cloud/catalograg/internal/domain"
	attrs "github.com/kailas-cloud/catalograg/internal/domain/attributes"
	"github.com/kailas-cloud/catalograg/internal/domain/search/request"
	"github.com/kailas-cloud/catalograg/internal/metrics"
	catalogrepo "github.com/kailas-cloud/catalograg/internal/repository/catalog"
	openaiTransport "github.com/kailas-cloud/catalograg/internal/transport/openai"
	rerankTransport "github.com/kailas-cloud/catalograg/internal/transport/rerank"
	attributesuc "github.com/kailas-cloud/catalograg/internal/usecase/attributes"
	embeddinguc "github.com/kailas-cloud/catalograg/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/catalograg/internal/usecase/health"
	rerankuc "github.com/kailas-cloud/catalograg/internal/usecase/rerank"
	"github.com/kailas-cloud/catalograg/internal/usecase/retrieval"
)

// Internal interfaces for substitution in tests.
type pipelineUseCase interface {
	RetrieveContext(ctx context.Context, req request.Request) (retrieval.Result, error)
	CacheStats() retrieval.Stats
	ClearCache()
	Close()
}

// Client is the catalograg SDK entry point. It is safe for concurrent use.
type Client struct {
	store     db.Store
	pipeline  pipelineUseCase
	healthSvc healthUseCase
	obs       *observer

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Client, connects to the vector store and starts the cache
// sweepers. The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("catalograg: vector store address required (use WithQdrant, WithRedis or WithValkey)")
	}
	if cfg.embedder == nil && (cfg.openai == nil || cfg.openai.model == "") {
		return nil, errors.New("catalograg: embedder required (use WithOpenAI or WithEmbedder)")
	}
	if err := cfg.weights.Validate(); err != nil {
		return nil, fmt.Errorf("catalograg: %w", err)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("catalograg: vector store not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("catalograg: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "qdrant":
		s, err := dbQdrant.NewStore(dbQdrant.Config{
			Addr:   cfg.addrs[0],
			APIKey: cfg.apiKey,
		})
		if err != nil {
			return nil, fmt.Errorf("catalograg: create qdrant store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("catalograg: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	// Pipeline internals log nothing; SDK operations log through slog.
	logger := zap.NewNop()

	var ms *metrics.Set
	if cfg.metricsReg != nil {
		ms = metrics.New()
		if err := ms.Register(cfg.metricsReg); err != nil {
			return nil, fmt.Errorf("catalograg: %w", err)
		}
	}

	embedder := buildEmbedder(cfg, ms, logger)

	var pipelineOpts []retrieval.Option
	if ms != nil {
		pipelineOpts = append(pipelineOpts, retrieval.WithMetrics(ms.Pipeline))
	}
	if x := buildExtractor(cfg, ms, logger); x != nil {
		pipelineOpts = append(pipelineOpts, retrieval.WithAttributeExtractor(x))
	}
	if r := buildReranker(cfg, ms, logger); r != nil {
		pipelineOpts = append(pipelineOpts, retrieval.WithReranker(r))
	}

	c := &Client{
		store:     store,
		healthSvc: healthuc.New(store, embedder),
		obs:       obs,
		done:      make(chan struct{}),
	}
	if cfg.degradations != nil {
		internal := make(chan retrieval.Degradation, max(cap(cfg.degradations), 1))
		pipelineOpts = append(pipelineOpts, retrieval.WithDegradations(internal))
		go c.forwardDegradations(internal, cfg.degradations)
	}

	indexName := catalogrepo.RedisIndex(cfg.collectionPrefix)
	if cfg.driver == "qdrant" {
		indexName = catalogrepo.QdrantCollection(cfg.collectionPrefix)
	}

	c.pipeline = retrieval.New(retrieval.Config{
		PoolSize:      cfg.poolSize,
		Limit:         cfg.limit,
		DisplayCount:  cfg.displayCount,
		SearchTimeout: cfg.searchTimeout,
		SweepInterval: cfg.sweepInterval,
		Weights:       cfg.weights,
	}, embedder, catalogrepo.New(store, indexName), logger, pipelineOpts...)

	return c, nil
}

func buildEmbedder(cfg *clientConfig, ms *metrics.Set, logger *zap.Logger) *embeddinguc.Service {
	var embedder domain.Embedder
	if cfg.embedder != nil {
		embedder = &embedderAdapter{inner: cfg.embedder}
	} else {
		oc := &openaiTransport.Config{
			APIKey:     cfg.openai.apiKey,
			BaseURL:    cfg.openai.baseURL,
			Model:      cfg.openai.model,
			Dimensions: cfg.openai.dimensions,
			Provider:   "openai",
			Logger:     logger,
		}
		if ms != nil {
			oc.Metrics = ms.Embedding
		}
		embedder = openaiTransport.NewEmbedder(oc)
	}

	var opts []cache.Option
	if ms != nil {
		opts = append(opts, cache.WithCounter(ms.Pipeline.CacheTotal))
	}
	c := cache.New[embeddinguc.Key, []float32](
		embeddinguc.CacheName, cfg.embeddingCacheMax, cfg.embeddingTTL, opts...)
	return embeddinguc.NewService(embedder, cfg.embeddingModel, c, cfg.callTimeout, logger)
}

// buildExtractor returns nil when attribute extraction is not configured.
func buildExtractor(cfg *clientConfig, ms *metrics.Set, logger *zap.Logger) *attributesuc.Service {
	var extractor attributesuc.Extractor
	switch {
	case cfg.extractor != nil:
		extractor = cfg.extractor
	case cfg.openai != nil && cfg.openai.extractionModel != "":
		extractor = openaiTransport.NewExtractor(&openaiTransport.ExtractorConfig{
			APIKey:  cfg.openai.apiKey,
			BaseURL: cfg.openai.baseURL,
			Model:   cfg.openai.extractionModel,
			Logger:  logger,
		})
	default:
		return nil
	}

	var cacheOpts []cache.Option
	var svcOpts []attributesuc.Option
	if ms != nil {
		cacheOpts = append(cacheOpts, cache.WithCounter(ms.Pipeline.CacheTotal))
		svcOpts = append(svcOpts, attributesuc.WithRequestsCounter(ms.Pipeline.ExtractionTotal))
	}
	c := cache.New[string, attrs.Query](
		attributesuc.CacheName, cfg.attributeCacheMax, cfg.attributeTTL, cacheOpts...)
	return attributesuc.NewService(extractor, c, cfg.callTimeout, logger, svcOpts...)
}

// buildReranker returns nil when reranking is not configured.
func buildReranker(cfg *clientConfig, ms *metrics.Set, logger *zap.Logger) *rerankuc.Service {
	var scorer rerankuc.Scorer
	switch {
	case cfg.scorer != nil:
		scorer = cfg.scorer
	case cfg.rerank != nil:
		scorer = rerankTransport.NewClient(&rerankTransport.Config{
			BaseURL: cfg.rerank.baseURL,
			APIKey:  cfg.rerank.apiKey,
			Model:   cfg.rerank.model,
			Logger:  logger,
		})
	default:
		return nil
	}

	var opts []rerankuc.Option
	if ms != nil {
		opts = append(opts, rerankuc.WithRequestsCounter(ms.Pipeline.RerankTotal))
	}
	return rerankuc.NewService(scorer, cfg.rerankTopK, cfg.callTimeout, logger, opts...)
}

// forwardDegradations converts pipeline events until the client is closed.
func (c *Client) forwardDegradations(in <-chan retrieval.Degradation, out chan<- Degradation) {
	for {
		select {
		case <-c.done:
			return
		case d := <-in:
			select {
			case out <- fromDegradation(d):
			default:
			}
		}
	}
}

// Close stops the cache sweepers and releases the vector store connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.done != nil {
			close(c.done)
		}
		if c.pipeline != nil {
			c.pipeline.Close()
		}
		if c.store != nil {
			c.store.Close()
		}
	})
}

// RetrieveContext runs the retrieval pipeline for query within opts.Scope.
// Errors wrap ErrInvalidRequest, ErrScopeRequired, ErrEmbeddingProviderError
// or ErrVectorSearch.
func (c *Client) RetrieveContext(ctx context.Context, query string, opts RetrieveOptions) (res Result, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe("retrieve", start, err,
			slog.String("scope", opts.Scope),
			slog.Int("returned", len(res.Sources)),
		)
	}()

	filters, err := toInternalFilters(opts.Filters)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	req, err := request.New(request.Params{
		Query:              query,
		Scope:              opts.Scope,
		Filters:            filters,
		PoolSize:           opts.PoolSize,
		Limit:              opts.Limit,
		DisplayCount:       opts.DisplayCount,
		IncludeUnavailable: opts.IncludeUnavailable,
		SkipRerank:         opts.SkipRerank,
	})
	if err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	out, err := c.pipeline.RetrieveContext(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}
	return fromResult(out), nil
}

// CacheStats returns a snapshot of both pipeline caches.
func (c *Client) CacheStats() PipelineCacheStats {
	st := c.pipeline.CacheStats()
	return PipelineCacheStats{
		Embeddings: fromCacheStats(st.Embeddings),
		Attributes: fromCacheStats(st.Attributes),
	}
}

// ClearCache empties both pipeline caches.
func (c *Client) ClearCache() {
	start := time.Now()
	c.pipeline.ClearCache()
	c.obs.observe("cache.clear", start, nil)
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
// Errors always match ErrEmbeddingProviderError.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingProviderError) {
			return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
		}
		return domain.EmbeddingResult{}, domain.NewEmbeddingProviderError("custom", 0, err.Error(), err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
