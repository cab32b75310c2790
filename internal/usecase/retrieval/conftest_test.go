package retrieval

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/catalograg/internal/cache"
	"github.com/kailas-cloud/catalograg/internal/domain"
	attrs "github.com/kailas-cloud/catalograg/internal/domain/attributes"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
)

type mockEmbedder struct {
	vector  []float32
	err     error
	calls   atomic.Int32
	cleared atomic.Int32
	runs    atomic.Int32
	stopped atomic.Int32
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vector}, nil
}

func (m *mockEmbedder) Stats() cache.Stats { return cache.Stats{Size: 1, Hits: 2, Misses: 3} }
func (m *mockEmbedder) Clear()             { m.cleared.Add(1) }

func (m *mockEmbedder) Run(ctx context.Context, _ time.Duration) {
	m.runs.Add(1)
	<-ctx.Done()
	m.stopped.Add(1)
}

type mockExtractor struct {
	query   attrs.Query
	err     error
	calls   atomic.Int32
	cleared atomic.Int32
}

func (m *mockExtractor) Extract(_ context.Context, _ string) (attrs.Query, error) {
	m.calls.Add(1)
	if m.err != nil {
		return attrs.Query{}, m.err
	}
	return m.query, nil
}

func (m *mockExtractor) Stats() cache.Stats { return cache.Stats{Size: 4} }
func (m *mockExtractor) Clear()             { m.cleared.Add(1) }

func (m *mockExtractor) Run(ctx context.Context, _ time.Duration) { <-ctx.Done() }

type mockSearcher struct {
	mu         sync.Mutex
	candidates []catalog.Candidate
	err        error
	last       catalog.SearchRequest
	calls      int
	deadline   bool
}

func (m *mockSearcher) Search(ctx context.Context, req catalog.SearchRequest) ([]catalog.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = req
	_, m.deadline = ctx.Deadline()
	if m.err != nil {
		return nil, m.err
	}
	return append([]catalog.Candidate(nil), m.candidates...), nil
}

type mockReranker struct {
	fn    func([]catalog.Ranked) []catalog.Ranked
	err   error
	calls int
}

func (m *mockReranker) Rerank(_ context.Context, _ string, ranked []catalog.Ranked) ([]catalog.Ranked, error) {
	m.calls++
	if m.err != nil {
		return ranked, m.err
	}
	return m.fn(ranked), nil
}

func ptr[T any](v T) *T { return &v }

func shoeCatalog() []catalog.Candidate {
	return []catalog.Candidate{
		{
			ID: "blue-120", Type: "product", Title: "Blue running shoe", BaseScore: 0.82,
			Attributes: catalog.Attributes{Category: "running shoes", Color: "blue", Price: ptr(120.0)},
			InStock:    true,
		},
		{
			ID: "red-80", Type: "product", Title: "Red running shoe", Description: "Lightweight",
			BaseScore:  0.80,
			Attributes: catalog.Attributes{Category: "running shoes", Color: "red", Price: ptr(80.0)},
			InStock:    true,
			Metrics:    catalog.Metrics{Popularity: ptr(0.5)},
		},
		{
			ID: "red-sold-out", Type: "product", Title: "Red sprint spike", BaseScore: 0.79,
			Attributes: catalog.Attributes{Category: "running shoes", Color: "red", Price: ptr(90.0)},
			InStock:    false,
		},
		{
			ID: "socks", Type: "accessory", Title: "Running socks", BaseScore: 0.5,
			Attributes: catalog.Attributes{Category: "socks", Color: "white", Price: ptr(9.0)},
			InStock:    true,
		},
	}
}
