package catalograg

import "context"

// Embedder converts query text to a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Extractor returns loosely typed shopping attributes for a query, restricted
// to allowedFields. Values are normalized by the pipeline.
type Extractor interface {
	Extract(ctx context.Context, text string, allowedFields []string) (map[string]any, error)
}

// Scorer returns one relevance score per document for a query.
type Scorer interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}
