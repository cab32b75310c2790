package catalograg

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type openAIConfig struct {
	apiKey          string
	baseURL         string
	model           string
	dimensions      int
	extractionModel string
}

type rerankConfig struct {
	baseURL string
	apiKey  string
	model   string
}

type clientConfig struct {
	driver           string // "qdrant", "redis" or "valkey"
	addrs            []string
	password         string
	apiKey           string
	collectionPrefix string
	readinessTimeout time.Duration

	embedder  Embedder
	extractor Extractor
	scorer    Scorer
	openai    *openAIConfig
	rerank    *rerankConfig

	embeddingModel    string
	embeddingCacheMax int
	embeddingTTL      time.Duration
	attributeCacheMax int
	attributeTTL      time.Duration
	sweepInterval     time.Duration
	callTimeout       time.Duration
	rerankTopK        int

	poolSize      int
	limit         int
	displayCount  int
	searchTimeout time.Duration
	weights       Weights

	degradations chan<- Degradation
	logger       *slog.Logger
	metricsReg   prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		collectionPrefix:  "catalog_",
		readinessTimeout:  10 * time.Second,
		embeddingModel:    "custom",
		embeddingCacheMax: 1000,
		embeddingTTL:      time.Hour,
		attributeCacheMax: 500,
		attributeTTL:      30 * time.Minute,
		sweepInterval:     time.Minute,
		callTimeout:       10 * time.Second,
		rerankTopK:        20,
		weights:           DefaultWeights(),
	}
}

// WithQdrant configures the client to search Qdrant collections over gRPC.
func WithQdrant(addr, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "qdrant"
		c.addrs = []string{addr}
		c.apiKey = apiKey
	})
}

// WithRedis configures the client to search a Redis instance with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey configures the client to search a Valkey instance with valkey-search.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithCollectionPrefix sets the prefix of per-scope collections or indexes.
// Default: "catalog_".
func WithCollectionPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collectionPrefix = prefix
	})
}

// WithEmbedder sets a custom query embedding provider. model identifies it in
// embedding cache keys.
func WithEmbedder(e Embedder, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		if model != "" {
			c.embeddingModel = model
		}
	})
}

// WithOpenAI uses an OpenAI-compatible API for query embeddings.
// An empty baseURL targets api.openai.com.
func WithOpenAI(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		if c.openai == nil {
			c.openai = &openAIConfig{}
		}
		c.openai.apiKey = apiKey
		c.openai.baseURL = baseURL
		c.openai.model = model
		c.embeddingModel = model
	})
}

// WithDimensions truncates OpenAI embeddings to dim (text-embedding-3 models).
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		if c.openai == nil {
			c.openai = &openAIConfig{}
		}
		c.openai.dimensions = dim
	})
}

// WithExtraction enables attribute extraction with an OpenAI-compatible chat
// model, using the WithOpenAI credentials.
func WithExtraction(model string) Option {
	return optionFunc(func(c *clientConfig) {
		if c.openai == nil {
			c.openai = &openAIConfig{}
		}
		c.openai.extractionModel = model
	})
}

// WithExtractor sets a custom attribute extractor.
func WithExtractor(x Extractor) Option {
	return optionFunc(func(c *clientConfig) {
		c.extractor = x
	})
}

// WithRerankEndpoint enables reranking against a /rerank endpoint
// (Cohere, Jina, TEI or vLLM compatible).
func WithRerankEndpoint(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.rerank = &rerankConfig{baseURL: baseURL, apiKey: apiKey, model: model}
	})
}

// WithReranker sets a custom cross-encoder scorer.
func WithReranker(s Scorer) Option {
	return optionFunc(func(c *clientConfig) {
		c.scorer = s
	})
}

// WithRerankTopK bounds the number of candidates sent to the reranker.
// Default: 20.
func WithRerankTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.rerankTopK = k
	})
}

// WithEmbeddingCache sets the embedding cache capacity and TTL.
// Defaults: 1000 entries, 1h.
func WithEmbeddingCache(maxSize int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingCacheMax = maxSize
		c.embeddingTTL = ttl
	})
}

// WithAttributeCache sets the attribute cache capacity and TTL.
// Defaults: 500 entries, 30m.
func WithAttributeCache(maxSize int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.attributeCacheMax = maxSize
		c.attributeTTL = ttl
	})
}

// WithSweepInterval sets how often expired cache entries are purged.
// Zero disables background sweeps. Default: 1m.
func WithSweepInterval(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.sweepInterval = d
	})
}

// WithCallTimeout bounds each embedding, extraction and rerank call.
// Default: 10s.
func WithCallTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.callTimeout = d
	})
}

// WithSizes sets the default candidate pool size, search limit and number of
// returned items. Zero keeps the pipeline default (100, 50, 10).
func WithSizes(poolSize, limit, displayCount int) Option {
	return optionFunc(func(c *clientConfig) {
		c.poolSize = poolSize
		c.limit = limit
		c.displayCount = displayCount
	})
}

// WithSearchTimeout bounds each vector search. Default: 5s.
func WithSearchTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchTimeout = d
	})
}

// WithWeights replaces the rescoring weights.
func WithWeights(w Weights) Option {
	return optionFunc(func(c *clientConfig) {
		c.weights = w
	})
}

// WithDegradations publishes every soft failure to ch. Events are dropped
// when ch is full.
func WithDegradations(ch chan<- Degradation) Option {
	return optionFunc(func(c *clientConfig) {
		c.degradations = ch
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK and pipeline metrics on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
