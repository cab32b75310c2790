package qdrant

// NewStoreForTest creates a Store with the provided client (test-only).
func NewStoreForTest(c pointsClient) *Store {
	return &Store{client: c}
}
