// Package embeddings
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding wraps failures from an embedding backend.
var ErrEmbedding = errors.New("embedding failed")

// Embedder provides text embedding capabilities. Used by the distillation
// convergence metric when cosine similarity is configured.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
