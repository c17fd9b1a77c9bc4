package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lucamori/seo-agent/pkg/embeddings"
)

// ErrUnavailable signals that retrieval could not run at all. Callers treat it
// as a degraded mode and continue with an empty context.
var ErrUnavailable = errors.New("retrieval unavailable")

// Searcher is the per-collection search operation the retriever fans out to.
type Searcher interface {
	Search(ctx context.Context, queryEmbedding []float32, topK int, filter map[string]any) ([]Result, error)
}

type collection struct {
	name     string
	searcher Searcher
	topK     int
}

// Retriever embeds a query once and searches registered collections, merging
// the hits into a single ranked list.
type Retriever struct {
	embedder    embeddings.Embedder
	collections []collection
	logger      *slog.Logger
}

func NewRetriever(embedder embeddings.Embedder, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder: embedder,
		logger:   logger,
	}
}

// Register adds a named collection. Registration order breaks score ties, so
// register the collection that should win first.
func (r *Retriever) Register(name string, searcher Searcher, topK int) {
	r.collections = append(r.collections, collection{name: name, searcher: searcher, topK: topK})
}

// Collections returns the registered collection names in order.
func (r *Retriever) Collections() []string {
	names := make([]string, 0, len(r.collections))
	for _, c := range r.collections {
		names = append(names, c.name)
	}
	return names
}

// Query embeds the text once and searches the named collections (all
// registered ones when names is empty). Results are merged in descending
// score order, ties broken by registration order, and truncated to topK.
// An embedding failure surfaces ErrUnavailable; a single collection failing
// is logged and skipped so the others still contribute.
func (r *Retriever) Query(ctx context.Context, text string, names []string, topK int) ([]Result, error) {
	selected := r.pick(names)
	if len(selected) == 0 || topK <= 0 {
		return nil, nil
	}

	queryEmbedding, err := r.embedder.EmbedText(ctx, text)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var merged []Result
	failed := 0
	for i, c := range selected {
		perCollection := c.topK
		if perCollection <= 0 {
			perCollection = topK
		}

		hits, err := c.searcher.Search(ctx, queryEmbedding, perCollection, nil)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			r.logger.Warn("Collection search failed", "collection", c.name, "error", err)
			failed++
			continue
		}

		for _, hit := range hits {
			hit.Collection = c.name
			hit.rank = i
			merged = append(merged, hit)
		}
	}

	if failed == len(selected) {
		return nil, fmt.Errorf("%w: all collections failed", ErrUnavailable)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].rank < merged[j].rank
	})

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

func (r *Retriever) pick(names []string) []collection {
	if len(names) == 0 {
		return r.collections
	}
	var selected []collection
	for _, c := range r.collections {
		for _, name := range names {
			if c.name == name {
				selected = append(selected, c)
				break
			}
		}
	}
	return selected
}

// BuildContext renders merged results as prompt context lines, each prefixed
// with its source collection.
func BuildContext(results []Result) []string {
	lines := make([]string, 0, len(results))
	for _, res := range results {
		content := strings.TrimSpace(res.Document.Content)
		if content == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", res.Collection, content))
	}
	return lines
}
