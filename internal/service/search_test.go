package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/search"
)

func hitIDs(res *search.SearchResult) []string {
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func TestSearch_FollowsWritesWithinSpace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := newSpace(t, env, "Alice")
	bob, _ := newSpace(t, env, "Bob")

	mine := newPage(t, env, alice.ID, "Launch checklist", "ship the release")
	theirs := newPage(t, env, bob.ID, "Launch party", "cake")
	_, cols := newBoard(t, env, alice.ID, "Todo")
	cardIDs := newCards(t, env, alice.ID, cols[0].ID, "Prepare launch notes")

	res, err := env.search.Search(ctx, search.SearchParams{SpaceID: alice.ID, Query: "launch"})
	require.NoError(t, err)
	ids := hitIDs(res)
	assert.ElementsMatch(t, []string{mine.ID, cardIDs[0]}, ids)
	assert.NotContains(t, ids, theirs.ID)

	require.NoError(t, env.pages.DeletePage(ctx, alice.ID, mine.ID))
	require.NoError(t, env.boards.DeleteCard(ctx, alice.ID, cardIDs[0]))

	res, err = env.search.Search(ctx, search.SearchParams{SpaceID: alice.ID, Query: "launch"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	_, err = env.search.Search(ctx, search.SearchParams{Query: "launch"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestEnsureIndexed_RebuildsEmptyIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	page := newPage(t, env, space.ID, "Roadmap", "quarterly goals")
	_, cols := newBoard(t, env, space.ID, "Todo")
	newCards(t, env, space.ID, cols[0].ID, "Write roadmap")

	// Simulate an index that lost its documents.
	require.NoError(t, env.search.index.Rebuild())
	count, err := env.search.DocumentCount()
	require.NoError(t, err)
	require.Zero(t, count)

	require.NoError(t, env.search.EnsureIndexed(ctx))
	count, err = env.search.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	res, err := env.search.Search(ctx, search.SearchParams{
		SpaceID: space.ID,
		Query:   "roadmap",
		Types:   []search.DocType{search.DocTypePage},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{page.ID}, hitIDs(res))

	// A populated index is left alone.
	require.NoError(t, env.search.EnsureIndexed(ctx))
	count, err = env.search.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}
