package catalograg

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background(), WithEmbedder(&mockEmbedder{}, "m"))
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestNew_NoEmbedder(t *testing.T) {
	_, err := New(context.Background(), WithQdrant("localhost:6334", ""))
	if err == nil {
		t.Fatal("expected error when no embedder configured")
	}
}

func TestNew_InvalidWeights(t *testing.T) {
	w := DefaultWeights()
	w.Color = -1
	_, err := New(context.Background(),
		WithQdrant("localhost:6334", ""),
		WithEmbedder(&mockEmbedder{}, "m"),
		WithWeights(w),
	)
	if err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	_, err := createStore(cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := defaultConfig()

	WithValkey("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "valkey" || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("valkey cfg = %q %v %q", cfg.driver, cfg.addrs, cfg.password)
	}
	WithRedis("localhost:6380", "pass").apply(cfg)
	if cfg.driver != "redis" {
		t.Errorf("driver = %q, want redis", cfg.driver)
	}
	WithQdrant("localhost:6334", "key").apply(cfg)
	if cfg.driver != "qdrant" || cfg.apiKey != "key" {
		t.Errorf("qdrant cfg = %q %q", cfg.driver, cfg.apiKey)
	}

	WithOpenAI("sk", "", "text-embedding-3-small").apply(cfg)
	WithDimensions(256).apply(cfg)
	WithExtraction("gpt-4o-mini").apply(cfg)
	if cfg.openai.model != "text-embedding-3-small" || cfg.openai.dimensions != 256 ||
		cfg.openai.extractionModel != "gpt-4o-mini" {
		t.Errorf("openai cfg = %+v", cfg.openai)
	}
	if cfg.embeddingModel != "text-embedding-3-small" {
		t.Errorf("embedding model = %q", cfg.embeddingModel)
	}

	WithEmbeddingCache(10, time.Minute).apply(cfg)
	WithAttributeCache(5, time.Second).apply(cfg)
	if cfg.embeddingCacheMax != 10 || cfg.embeddingTTL != time.Minute ||
		cfg.attributeCacheMax != 5 || cfg.attributeTTL != time.Second {
		t.Errorf("cache cfg = %+v", cfg)
	}

	WithSizes(200, 80, 5).apply(cfg)
	if cfg.poolSize != 200 || cfg.limit != 80 || cfg.displayCount != 5 {
		t.Errorf("sizes = %d %d %d", cfg.poolSize, cfg.limit, cfg.displayCount)
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}
	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestClient_RetrieveContext(t *testing.T) {
	store := &fakeStore{entries: shoeEntries()}
	c := testClient(t, store,
		WithEmbedder(&mockEmbedder{}, "m"),
		WithExtractor(&mockExtractor{attrs: map[string]any{"color": "Red"}}),
	)

	res, err := c.RetrieveContext(context.Background(), "red running shoes", RetrieveOptions{Scope: "shop1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := store.lastQuery()
	if q == nil || q.IndexName != "catalog_shop1" {
		t.Fatalf("query = %+v, want collection catalog_shop1", q)
	}
	if len(res.Sources) != 2 {
		t.Fatalf("sources = %d, want 2 (out of stock dropped)", len(res.Sources))
	}
	if res.Sources[0].ID != "red" {
		t.Errorf("top source = %q, want red after color boost", res.Sources[0].ID)
	}
	if res.Metadata.Attributes["color"] != "red" {
		t.Errorf("attributes = %v", res.Metadata.Attributes)
	}
	if res.Metadata.RequestID == "" {
		t.Error("expected request id")
	}
	if res.Content == "" {
		t.Error("expected formatted content")
	}
}

func TestClient_RetrieveContext_CachesEmbeddings(t *testing.T) {
	emb := &mockEmbedder{}
	c := testClient(t, &fakeStore{entries: shoeEntries()}, WithEmbedder(emb, "m"))

	for range 2 {
		if _, err := c.RetrieveContext(context.Background(), "red  shoes", RetrieveOptions{Scope: "shop1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := emb.calls.Load(); got != 1 {
		t.Errorf("embedder calls = %d, want 1", got)
	}
	st := c.CacheStats()
	if st.Embeddings.Hits != 1 || st.Embeddings.Misses != 1 {
		t.Errorf("embedding stats = %+v", st.Embeddings)
	}

	c.ClearCache()
	if st := c.CacheStats(); st.Embeddings.Size != 0 {
		t.Errorf("size after clear = %d", st.Embeddings.Size)
	}
}

func TestClient_RetrieveContext_Errors(t *testing.T) {
	c := testClient(t, &fakeStore{err: errUpstream}, WithEmbedder(&mockEmbedder{}, "m"))
	ctx := context.Background()

	if _, err := c.RetrieveContext(ctx, "shoes", RetrieveOptions{}); !errors.Is(err, ErrScopeRequired) {
		t.Errorf("err = %v, want ErrScopeRequired", err)
	}
	if _, err := c.RetrieveContext(ctx, "  ", RetrieveOptions{Scope: "shop1"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
	bad := RetrieveOptions{Scope: "shop1", Filters: FilterExpression{Must: []FilterCondition{{Key: "color"}}}}
	if _, err := c.RetrieveContext(ctx, "shoes", bad); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest for empty condition", err)
	}
	if _, err := c.RetrieveContext(ctx, "shoes", RetrieveOptions{Scope: "shop1"}); !errors.Is(err, ErrVectorSearch) {
		t.Errorf("err = %v, want ErrVectorSearch", err)
	}

	failing := testClient(t, &fakeStore{}, WithEmbedder(&mockEmbedder{err: errUpstream}, "m"))
	_, err := failing.RetrieveContext(ctx, "shoes", RetrieveOptions{Scope: "shop1"})
	if !errors.Is(err, ErrEmbeddingProviderError) || !errors.Is(err, errUpstream) {
		t.Errorf("err = %v, want provider error with embedder cause", err)
	}
}

func TestClient_Degradations(t *testing.T) {
	ch := make(chan Degradation, 4)
	c := testClient(t, &fakeStore{entries: shoeEntries()},
		WithEmbedder(&mockEmbedder{}, "m"),
		WithExtractor(&mockExtractor{err: errUpstream}),
		WithReranker(&mockScorer{err: errUpstream}),
		WithDegradations(ch),
	)

	res, err := c.RetrieveContext(context.Background(), "red shoes", RetrieveOptions{Scope: "shop1"})
	if err != nil {
		t.Fatalf("soft failures must not abort: %v", err)
	}
	if len(res.Metadata.Degradations) != 2 {
		t.Fatalf("degradations = %+v, want extract and rerank", res.Metadata.Degradations)
	}
	if res.Metadata.Reranked {
		t.Error("failed rerank must not mark the result reranked")
	}

	stages := map[string]bool{}
	for range 2 {
		select {
		case d := <-ch:
			stages[d.Stage] = true
			if d.RequestID != res.Metadata.RequestID {
				t.Errorf("event request id = %q, want %q", d.RequestID, res.Metadata.RequestID)
			}
		case <-time.After(time.Second):
			t.Fatal("degradation event not forwarded")
		}
	}
	if !stages["extract"] || !stages["rerank"] {
		t.Errorf("stages = %v", stages)
	}
}

func TestClient_Rerank(t *testing.T) {
	c := testClient(t, &fakeStore{entries: shoeEntries()},
		WithEmbedder(&mockEmbedder{}, "m"),
		WithReranker(&mockScorer{scores: []float64{0, 1, 0}}),
		WithRerankTopK(3),
	)

	res, err := c.RetrieveContext(context.Background(), "shoes", RetrieveOptions{Scope: "shop1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Metadata.Reranked {
		t.Error("expected reranked result")
	}

	res, err = c.RetrieveContext(context.Background(), "shoes", RetrieveOptions{Scope: "shop1", SkipRerank: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Metadata.Reranked {
		t.Error("SkipRerank must bypass the reranker")
	}
}

func TestClient_Health(t *testing.T) {
	c := testClient(t, &fakeStore{}, WithEmbedder(&mockEmbedder{}, "m"))
	if h := c.Health(context.Background()); h.Status != "ok" {
		t.Errorf("status = %q, checks = %v", h.Status, h.Checks)
	}

	down := testClient(t, &fakeStore{pingErr: errUpstream}, WithEmbedder(&mockEmbedder{}, "m"))
	h := down.Health(context.Background())
	if h.Status != "error" || h.Checks["vector_store"] != "error" {
		t.Errorf("health = %+v", h)
	}
}

func TestClient_Close(t *testing.T) {
	store := &fakeStore{}
	cfg := defaultConfig()
	WithEmbedder(&mockEmbedder{}, "m").apply(cfg)
	c, err := wireClient(store, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
	c.Close()
	if got := store.closed.Load(); got != 1 {
		t.Errorf("store closed %d times, want 1", got)
	}
}

func TestClient_Close_NilStore(t *testing.T) {
	c := &Client{}
	c.Close()
}

func TestClient_Prometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := testClient(t, &fakeStore{entries: shoeEntries()},
		WithEmbedder(&mockEmbedder{}, "m"),
		WithPrometheus(reg),
	)
	if _, err := c.RetrieveContext(context.Background(), "shoes", RetrieveOptions{Scope: "shop1"}); err != nil {
		t.Fatal(err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"catalograg_sdk_operations_total", "catalograg_cache_total"} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestEmbedderAdapter(t *testing.T) {
	adapter := &embedderAdapter{inner: &mockEmbedder{}}
	result, err := adapter.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 3 {
		t.Errorf("result = %+v", result)
	}

	adapter = &embedderAdapter{inner: &mockEmbedder{err: errUpstream}}
	_, err = adapter.Embed(context.Background(), "hello")
	var pe *EmbeddingProviderError
	if !errors.As(err, &pe) || !errors.Is(err, errUpstream) {
		t.Errorf("err = %v, want provider error wrapping cause", err)
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("test.op", time.Now(), nil, slog.String("scope", "s"))
	obs.observe("test.op", time.Now(), errors.New("test error"))
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first observer: %v", err)
	}
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("second observer must reuse collectors: %v", err)
	}
}
