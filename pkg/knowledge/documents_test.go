package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentsCorpus(t *testing.T) {
	docs := Documents()
	require.Len(t, docs, 34)

	seenIDs := make(map[string]string)
	seenCategories := make(map[string]int)
	for _, doc := range docs {
		require.NotEmpty(t, doc.Title)
		require.NotEmpty(t, doc.Text)
		require.NotEmpty(t, doc.Category)

		if prev, dup := seenIDs[doc.ID]; dup {
			t.Fatalf("duplicate id for %q and %q", prev, doc.Title)
		}
		seenIDs[doc.ID] = doc.Title
		seenCategories[doc.Category]++
	}

	for _, category := range []string{
		CategoryFundamentals, CategoryTechnical, CategoryContent,
		CategoryPerformance, CategorySecurity, CategoryAdvanced, CategoryTools,
	} {
		assert.Greater(t, seenCategories[category], 0, "category %s has no documents", category)
	}
}

func TestDocumentIDIsStable(t *testing.T) {
	assert.Equal(t, DocumentID("Title tags"), DocumentID("Title tags"))
	assert.NotEqual(t, DocumentID("Title tags"), DocumentID("Meta descriptions"))
	assert.Len(t, DocumentID("Title tags"), 32)
}
