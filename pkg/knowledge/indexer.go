package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lucamori/seo-agent/pkg/embeddings"
	"github.com/lucamori/seo-agent/pkg/retrieval"
)

// Indexer embeds the knowledge corpus and writes it into its collection.
type Indexer struct {
	store    *retrieval.Store
	embedder embeddings.Embedder
	logger   *slog.Logger
}

func NewIndexer(store *retrieval.Store, embedder embeddings.Embedder, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// Index embeds every corpus document and upserts it. Safe to run on every
// startup: ids are stable, so repeated runs rewrite the same rows.
func (i *Indexer) Index(ctx context.Context) (int, error) {
	docs := Documents()

	texts := make([]string, len(docs))
	for idx, doc := range docs {
		texts[idx] = doc.Title + "\n\n" + doc.Text
	}

	vectors, err := i.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed knowledge base: %w", err)
	}
	if len(vectors) != len(docs) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	entries := make([]retrieval.Document, len(docs))
	for idx, doc := range docs {
		entries[idx] = retrieval.Document{
			ID:      doc.ID,
			Content: doc.Title + "\n\n" + doc.Text,
			Metadata: map[string]any{
				"title":    doc.Title,
				"category": doc.Category,
			},
			Embedding: vectors[idx],
		}
	}

	if err := i.store.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to index knowledge base: %w", err)
	}

	i.logger.Info("Indexed knowledge base", "documents", len(entries), "collection", i.store.TableName())
	return len(entries), nil
}

// Indexed reports whether the collection already holds the full corpus.
func (i *Indexer) Indexed(ctx context.Context) (bool, error) {
	count, err := i.store.Count(ctx)
	if err != nil {
		return false, err
	}
	return count >= int64(len(corpus)), nil
}
