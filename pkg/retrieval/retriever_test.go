package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		vec, err := f.EmbedText(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

type fakeSearcher struct {
	results []Result
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, queryEmbedding []float32, topK int, filter map[string]any) ([]Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > topK {
		return f.results[:topK], nil
	}
	return f.results, nil
}

func hit(id string, score float64) Result {
	return Result{Document: Document{ID: id, Content: "content " + id}, Score: score}
}

func TestQueryMergesByScore(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, nil)
	r.Register("seo_knowledge", &fakeSearcher{results: []Result{hit("k1", 0.9), hit("k2", 0.5)}}, 4)
	r.Register("scan_history", &fakeSearcher{results: []Result{hit("s1", 0.7)}}, 5)

	results, err := r.Query(context.Background(), "meta descriptions", nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "k1", results[0].Document.ID)
	assert.Equal(t, "s1", results[1].Document.ID)
	assert.Equal(t, "k2", results[2].Document.ID)
	assert.Equal(t, "seo_knowledge", results[0].Collection)
	assert.Equal(t, "scan_history", results[1].Collection)
}

func TestQueryTieBreaksByRegistrationOrder(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, nil)
	r.Register("seo_knowledge", &fakeSearcher{results: []Result{hit("k1", 0.8)}}, 4)
	r.Register("scan_history", &fakeSearcher{results: []Result{hit("s1", 0.8)}}, 5)

	results, err := r.Query(context.Background(), "q", nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "k1", results[0].Document.ID)
	assert.Equal(t, "s1", results[1].Document.ID)
}

func TestQueryTruncatesToTopK(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, nil)
	r.Register("seo_knowledge", &fakeSearcher{results: []Result{
		hit("k1", 0.9), hit("k2", 0.8), hit("k3", 0.7),
	}}, 4)
	r.Register("scan_history", &fakeSearcher{results: []Result{
		hit("s1", 0.85), hit("s2", 0.6),
	}}, 5)

	results, err := r.Query(context.Background(), "q", nil, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "k1", results[0].Document.ID)
	assert.Equal(t, "s1", results[1].Document.ID)
	assert.Equal(t, "k2", results[2].Document.ID)
}

func TestQuerySelectsNamedCollections(t *testing.T) {
	embedder := &fakeEmbedder{}
	r := NewRetriever(embedder, nil)
	r.Register("seo_knowledge", &fakeSearcher{results: []Result{hit("k1", 0.9)}}, 4)
	r.Register("scan_history", &fakeSearcher{results: []Result{hit("s1", 0.95)}}, 5)

	results, err := r.Query(context.Background(), "q", []string{"seo_knowledge"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "k1", results[0].Document.ID)
	assert.Equal(t, 1, embedder.calls)
}

func TestQueryEmbedFailureIsUnavailable(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{err: errors.New("quota exceeded")}, nil)
	r.Register("seo_knowledge", &fakeSearcher{}, 4)

	_, err := r.Query(context.Background(), "q", nil, 5)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestQuerySkipsFailingCollection(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, nil)
	r.Register("seo_knowledge", &fakeSearcher{err: errors.New("relation missing")}, 4)
	r.Register("scan_history", &fakeSearcher{results: []Result{hit("s1", 0.7)}}, 5)

	results, err := r.Query(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].Document.ID)
}

func TestQueryAllCollectionsFailingIsUnavailable(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, nil)
	r.Register("seo_knowledge", &fakeSearcher{err: errors.New("down")}, 4)
	r.Register("scan_history", &fakeSearcher{err: errors.New("down")}, 5)

	_, err := r.Query(context.Background(), "q", nil, 5)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBuildContext(t *testing.T) {
	results := []Result{
		{Document: Document{Content: "Keep titles under 60 characters."}, Collection: "seo_knowledge"},
		{Document: Document{Content: "  "}, Collection: "seo_knowledge"},
		{Document: Document{Content: "Previous scan found 3 errors."}, Collection: "scan_history"},
	}

	lines := BuildContext(results)
	require.Len(t, lines, 2)
	assert.Equal(t, "[seo_knowledge] Keep titles under 60 characters.", lines[0])
	assert.Equal(t, "[scan_history] Previous scan found 3 errors.", lines[1])
}
