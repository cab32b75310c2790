package catalograg

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/catalograg/internal/db"
)

// --- db.Store fake ---

type fakeStore struct {
	mu      sync.Mutex
	entries []db.SearchEntry
	err     error
	pingErr error
	queries []*db.KNNQuery
	closed  atomic.Int32
}

func (s *fakeStore) Ping(_ context.Context) error { return s.pingErr }

func (s *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	return &db.SearchResult{Total: len(s.entries), Entries: s.entries}, nil
}

func (s *fakeStore) Close() { s.closed.Add(1) }

func (s *fakeStore) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

func (s *fakeStore) lastQuery() *db.KNNQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queries) == 0 {
		return nil
	}
	return s.queries[len(s.queries)-1]
}

func shoeEntries() []db.SearchEntry {
	return []db.SearchEntry{
		{Key: "catalog_shop1:blue", Score: 0.92, Fields: map[string]string{
			"id": "blue", "type": "product", "title": "Blue Runner", "category": "shoes",
			"color": "blue", "price": "80", "in_stock": "true",
		}},
		{Key: "catalog_shop1:red", Score: 0.90, Fields: map[string]string{
			"id": "red", "type": "product", "title": "Red Runner", "category": "shoes",
			"color": "red", "price": "85", "in_stock": "true",
		}},
		{Key: "catalog_shop1:gone", Score: 0.95, Fields: map[string]string{
			"id": "gone", "type": "product", "title": "Sold Out Runner", "category": "shoes",
			"color": "red", "in_stock": "false",
		}},
	}
}

// --- public interface mocks ---

type mockEmbedder struct {
	calls atomic.Int32
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	m.calls.Add(1)
	if m.err != nil {
		return EmbeddingResult{}, m.err
	}
	return EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 3}, nil
}

type mockExtractor struct {
	attrs map[string]any
	err   error
}

func (m *mockExtractor) Extract(_ context.Context, _ string, _ []string) (map[string]any, error) {
	return m.attrs, m.err
}

type mockScorer struct {
	scores []float64
	err    error
}

func (m *mockScorer) Score(_ context.Context, _ string, docs []string) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.scores[:len(docs)], nil
}

var errUpstream = errors.New("upstream down")

// --- helpers ---

func testClient(t *testing.T, store *fakeStore, opts ...Option) *Client {
	t.Helper()
	cfg := defaultConfig()
	cfg.driver = "qdrant"
	cfg.addrs = []string{"localhost:6334"}
	cfg.sweepInterval = 0
	for _, o := range opts {
		o.apply(cfg)
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	c, err := wireClient(store, cfg, obs)
	if err != nil {
		t.Fatalf("wireClient: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}
