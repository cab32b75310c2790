package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/cache"
	"github.com/kailas-cloud/catalograg/internal/config"
	"github.com/kailas-cloud/catalograg/internal/db"
	dbQdrant "github.com/kailas-cloud/catalograg/internal/db/qdrant"
	dbRedis "github.com/kailas-cloud/catalograg/internal/db/redis"
	"github.com/kailas-cloud/catalograg/internal/domain"
	attrs "github.com/kailas-cloud/catalograg/internal/domain/attributes"
	"github.com/kailas-cloud/catalograg/internal/metrics"
	catalogrepo "github.com/kailas-cloud/catalograg/internal/repository/catalog"
	openaiTransport "github.com/kailas-cloud/catalograg/internal/transport/openai"
	rerankTransport "github.com/kailas-cloud/catalograg/internal/transport/rerank"
	attributesuc "github.com/kailas-cloud/catalograg/internal/usecase/attributes"
	embeddinguc "github.com/kailas-cloud/catalograg/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/catalograg/internal/usecase/health"
	rerankuc "github.com/kailas-cloud/catalograg/internal/usecase/rerank"
	"github.com/kailas-cloud/catalograg/internal/usecase/rescore"
	"github.com/kailas-cloud/catalograg/internal/usecase/retrieval"
)

// pipeline is the wired retrieval stack of one process.
type pipeline struct {
	store     db.Store
	retrieval *retrieval.Service
	health    *healthuc.Service
}

func (p *pipeline) Close() {
	p.retrieval.Close()
	p.store.Close()
}

// buildPipeline is the composition root shared by serve and query.
func buildPipeline(ctx context.Context, cfg config.Config, ms *metrics.Set, logger *zap.Logger) (*pipeline, error) {
	store, err := newStore(cfg.VectorStore)
	if err != nil {
		return nil, err
	}

	readiness := time.Duration(cfg.VectorStore.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		store.Close()
		return nil, fmt.Errorf("vector store not ready: %w", err)
	}
	logger.Info("Connected to vector store",
		zap.String("driver", cfg.VectorStore.Driver),
		zap.Strings("addrs", cfg.VectorStore.Addrs),
	)

	embedder := buildEmbedder(cfg, ms, logger)
	repo := catalogrepo.New(store, indexNamer(cfg.VectorStore))

	opts := []retrieval.Option{retrieval.WithMetrics(ms.Pipeline)}
	if cfg.Extraction.Enabled {
		opts = append(opts, retrieval.WithAttributeExtractor(buildExtractor(cfg, ms, logger)))
	}
	if cfg.Rerank.Enabled {
		opts = append(opts, retrieval.WithReranker(buildReranker(cfg, ms, logger)))
	}

	svc := retrieval.New(retrieval.Config{
		PoolSize:      cfg.Retrieval.PoolSize,
		Limit:         cfg.Retrieval.Limit,
		DisplayCount:  cfg.Retrieval.DisplayCount,
		SearchTimeout: cfg.Retrieval.SearchTimeout(),
		SweepInterval: cfg.Cache.SweepInterval(),
		Weights:       weightsFromConfig(cfg.Weights),
	}, embedder, repo, logger, opts...)

	logger.Info("Pipeline created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Bool("extraction", cfg.Extraction.Enabled),
		zap.Bool("rerank", cfg.Rerank.Enabled),
	)

	return &pipeline{
		store:     store,
		retrieval: svc,
		health:    healthuc.New(store, embedder),
	}, nil
}

func newStore(cfg config.VectorStoreConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverRedis, config.DriverValkey:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			TLS:      cfg.TLS,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		return s, nil
	case config.DriverQdrant:
		s, err := dbQdrant.NewStore(dbQdrant.Config{
			Addr:   cfg.Addrs[0],
			APIKey: cfg.APIKey,
			TLS:    cfg.TLS,
		})
		if err != nil {
			return nil, fmt.Errorf("create qdrant store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown vector store driver %q", cfg.Driver)
	}
}

func indexNamer(cfg config.VectorStoreConfig) catalogrepo.IndexNamer {
	if cfg.Driver == config.DriverQdrant {
		return catalogrepo.QdrantCollection(cfg.CollectionPrefix)
	}
	return catalogrepo.RedisIndex(cfg.CollectionPrefix)
}

// buildEmbedder assembles the decorator chain: OpenAI -> Instrumented -> Instruction -> Cached.
func buildEmbedder(cfg config.Config, ms *metrics.Set, logger *zap.Logger) *embeddinguc.Service {
	ec := cfg.Embedding

	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Metrics:    ms.Embedding,
		Logger:     logger,
	})
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, logger)
	if ec.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, ec.QueryInstruction)
	}

	c := cache.New[embeddinguc.Key, []float32](
		embeddinguc.CacheName, cfg.Cache.EmbeddingMaxSize, cfg.Cache.EmbeddingTTL(),
		cache.WithCounter(ms.Pipeline.CacheTotal),
	)
	return embeddinguc.NewService(embedder, ec.Model, c, ec.Timeout(), logger)
}

func buildExtractor(cfg config.Config, ms *metrics.Set, logger *zap.Logger) *attributesuc.Service {
	xc := cfg.Extraction
	extractor := openaiTransport.NewExtractor(&openaiTransport.ExtractorConfig{
		APIKey:      xc.APIKey,
		BaseURL:     xc.BaseURL,
		Model:       xc.Model,
		Temperature: xc.Temperature,
		Logger:      logger,
	})
	c := cache.New[string, attrs.Query](
		attributesuc.CacheName, cfg.Cache.AttributeMaxSize, cfg.Cache.AttributeTTL(),
		cache.WithCounter(ms.Pipeline.CacheTotal),
	)
	return attributesuc.NewService(extractor, c, xc.Timeout(), logger,
		attributesuc.WithRequestsCounter(ms.Pipeline.ExtractionTotal))
}

func buildReranker(cfg config.Config, ms *metrics.Set, logger *zap.Logger) *rerankuc.Service {
	rc := cfg.Rerank
	client := rerankTransport.NewClient(&rerankTransport.Config{
		BaseURL: rc.BaseURL,
		APIKey:  rc.APIKey,
		Model:   rc.Model,
		Logger:  logger,
	})
	return rerankuc.NewService(client, rc.TopK, rc.Timeout(), logger,
		rerankuc.WithRequestsCounter(ms.Pipeline.RerankTotal))
}

// weightsFromConfig overlays configured weights on the defaults.
func weightsFromConfig(wc config.WeightsConfig) rescore.Weights {
	w := rescore.DefaultWeights()
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&w.Category, wc.Category)
	set(&w.Brand, wc.Brand)
	set(&w.Color, wc.Color)
	set(&w.Material, wc.Material)
	set(&w.Season, wc.Season)
	set(&w.Gender, wc.Gender)
	set(&w.Size, wc.Size)
	set(&w.Popularity, wc.Popularity)
	set(&w.CTR, wc.CTR)
	set(&w.Sales, wc.Sales)
	return w
}
