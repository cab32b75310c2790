package embedding

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kailas-cloud/catalograg/internal/domain"
)

type mockEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    atomic.Int32
	texts    []string
	block    chan struct{}
	healthy  error
}

func newMockEmbedder(vec []float32) *mockEmbedder {
	return &mockEmbedder{fallback: vec}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.texts = append(m.texts, text)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return domain.EmbeddingResult{}, ctx.Err()
		}
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: v, PromptTokens: 3, TotalTokens: 3}, nil
	}
	return domain.EmbeddingResult{Embedding: m.fallback, PromptTokens: 3, TotalTokens: 3}, nil
}

func (m *mockEmbedder) HealthCheck(_ context.Context) error {
	return m.healthy
}

func (m *mockEmbedder) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.texts) == 0 {
		return ""
	}
	return m.texts[len(m.texts)-1]
}
