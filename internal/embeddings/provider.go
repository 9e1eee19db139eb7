// Package embeddings defines the pluggable text-embedding contract
// consumed by the semantic facade.
package embeddings

import "context"

// Provider generates vector embeddings for text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelID() string
}
