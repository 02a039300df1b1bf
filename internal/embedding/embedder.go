// Package embedding provides text embedding via Ollama and caching.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when a caller asks to embed empty or whitespace-only text.
var ErrEmptyText = errors.New("embedding: empty text")

// Embedder produces vector embeddings for text. Implementations return
// L2-normalized vectors so that inner product equals cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
