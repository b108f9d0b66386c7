// Package embeddingprovider abstracts the vector-generation backend used
// by the embedding stage, mirroring the provider-interface split Tangerg-
// lynx's embedding model package uses to keep a remote model swappable
// without touching the caller.
package embeddingprovider

import "context"

// Provider turns text into fixed-dimension embedding vectors under a
// named model.
type Provider interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	ModelName() string
	Dimension() int
}
