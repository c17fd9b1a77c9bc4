// Package embeddings provides the embedding collaborator used by the
// retrieval layer and scan persistence.
package embeddings

import "context"

// Embedder turns text into a similarity-searchable vector. The retrieval
// layer and scan store depend on this interface only, so tests can swap in a
// deterministic implementation.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
