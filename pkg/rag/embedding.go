package rag

import (
	"context"

	"msgrag/pkg/vectordb"
)

// EmbeddingClientAdapter adapts vectordb.EmbeddingClient to the Embedder
// interface used by the search service.
type EmbeddingClientAdapter struct {
	client *vectordb.EmbeddingClient
}

// NewEmbeddingAdapter wraps an embedding client for use by the service
func NewEmbeddingAdapter(client *vectordb.EmbeddingClient) *EmbeddingClientAdapter {
	return &EmbeddingClientAdapter{client: client}
}

// Embed generates an embedding for a query string
func (a *EmbeddingClientAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	return a.client.Embed(ctx, text)
}

// IsAvailable reports whether the embedding endpoint responds
func (a *EmbeddingClientAdapter) IsAvailable(ctx context.Context) bool {
	return a.client.IsAvailable(ctx)
}
