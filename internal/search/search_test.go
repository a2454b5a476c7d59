package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeapp/forge-server/internal/domain"
)

// setupTestIndex creates a search index in a temporary directory.
func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	index, err := NewSearchIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func page(id, spaceID, title, content string) *domain.Page {
	now := time.Now().UTC()
	return &domain.Page{
		Entity:  domain.Entity{ID: id, CreatedAt: now, UpdatedAt: now},
		SpaceID: spaceID,
		Title:   title,
		Content: content,
	}
}

func card(id, spaceID, title, description string) *domain.Card {
	now := time.Now().UTC()
	return &domain.Card{
		Entity:      domain.Entity{ID: id, CreatedAt: now, UpdatedAt: now},
		SpaceID:     spaceID,
		BoardID:     "board-1",
		ColumnID:    "col-1",
		Title:       title,
		Description: description,
	}
}

func TestNewSearchIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewSearchIndex_InMemory(t *testing.T) {
	index, err := NewSearchIndex(Options{})
	require.NoError(t, err)
	defer index.Close()

	require.NoError(t, index.IndexDocument(PageToSearchDocument(page("page-1", "space-1", "Roadmap", "Q3 goals"))))
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestPageToSearchDocument_StripsMarkdown(t *testing.T) {
	doc := PageToSearchDocument(page("page-1", "space-1", "Notes", "# Heading\n\n- [x] **done** item"))

	assert.Equal(t, DocTypePage, doc.Type)
	assert.Equal(t, "space-1", doc.SpaceID)
	assert.NotContains(t, doc.Body, "#")
	assert.NotContains(t, doc.Body, "**")
	assert.Contains(t, doc.Body, "done item")
}

func TestSearch_ScopedToSpace(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocuments([]*SearchDocument{
		PageToSearchDocument(page("page-1", "space-1", "Launch plan", "ship the release")),
		PageToSearchDocument(page("page-2", "space-2", "Launch plan", "other tenant")),
		CardToSearchDocument(card("card-1", "space-1", "Write launch email", "")),
	}))

	result, err := index.Search(context.Background(), SearchParams{SpaceID: "space-1", Query: "launch"})
	require.NoError(t, err)

	ids := make([]string, 0, len(result.Hits))
	for _, h := range result.Hits {
		ids = append(ids, h.ID)
	}
	assert.ElementsMatch(t, []string{"page-1", "card-1"}, ids)
}

func TestSearch_MatchesBody(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocument(PageToSearchDocument(
		page("page-1", "space-1", "Meeting", "Discuss the **budget** for next quarter"))))

	result, err := index.Search(context.Background(), SearchParams{SpaceID: "space-1", Query: "budget"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Meeting", result.Hits[0].Title)
	assert.Equal(t, DocTypePage, result.Hits[0].Type)
}

func TestSearch_TypeFilter(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocuments([]*SearchDocument{
		PageToSearchDocument(page("page-1", "space-1", "Design review", "")),
		CardToSearchDocument(card("card-1", "space-1", "Design review", "")),
	}))

	result, err := index.Search(context.Background(), SearchParams{
		SpaceID: "space-1",
		Query:   "design",
		Types:   []DocType{DocTypeCard},
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "card-1", result.Hits[0].ID)
	assert.Equal(t, "board-1", result.Hits[0].BoardID)
}

func TestSearch_RequiresSpace(t *testing.T) {
	index := setupTestIndex(t)

	_, err := index.Search(context.Background(), SearchParams{Query: "x"})
	assert.Error(t, err)
}

func TestSearchIndex_DeleteDocument(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocument(CardToSearchDocument(card("card-1", "space-1", "Fix login", ""))))
	require.NoError(t, index.DeleteDocument("card-1"))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearchIndex_Rebuild(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocument(CardToSearchDocument(card("card-1", "space-1", "Fix login", ""))))
	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestParseDocType(t *testing.T) {
	got, ok := ParseDocType("card")
	assert.True(t, ok)
	assert.Equal(t, DocTypeCard, got)

	_, ok = ParseDocType("book")
	assert.False(t, ok)
}
