package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeapp/forge-server/internal/autosave"
	"github.com/forgeapp/forge-server/internal/domain"
	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/markdown"
)

func newPage(t *testing.T, env *testEnv, spaceID, title, content string) *domain.Page {
	t.Helper()
	page, err := env.pages.CreatePage(context.Background(), spaceID, CreatePageRequest{Title: title, Content: content})
	require.NoError(t, err)
	return page
}

func TestCreatePage_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")

	_, err := env.pages.CreatePage(ctx, space.ID, CreatePageRequest{Title: " ", Content: "body"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.pages.CreatePage(ctx, space.ID, CreatePageRequest{Title: "Notes", Content: "\n  "})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	page, err := env.pages.CreatePage(ctx, space.ID, CreatePageRequest{Title: " Notes ", Content: "body"})
	require.NoError(t, err)
	assert.Equal(t, "Notes", page.Title)
	assert.Nil(t, page.BoardID)
}

func TestCreatePage_LinksMustBelongToSpace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := newSpace(t, env, "Alice")
	bob, _ := newSpace(t, env, "Bob")
	board, cols := newBoard(t, env, alice.ID, "Todo")
	cardIDs := newCards(t, env, alice.ID, cols[0].ID, "A")

	_, err := env.pages.CreatePage(ctx, bob.ID, CreatePageRequest{Title: "x", Content: "y", BoardID: &board.ID})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	page, err := env.pages.CreatePage(ctx, alice.ID, CreatePageRequest{
		Title:   "Spec",
		Content: "details",
		BoardID: &board.ID,
		CardID:  &cardIDs[0],
	})
	require.NoError(t, err)
	require.NotNil(t, page.CardID)

	card, err := env.boards.GetCard(ctx, alice.ID, cardIDs[0])
	require.NoError(t, err)
	require.Len(t, card.LinkedPages, 1)
	assert.Equal(t, "Spec", card.LinkedPages[0].Title)

	// Explicit null clears a link, an unset field keeps it.
	updated, err := env.pages.UpdatePage(ctx, alice.ID, page.ID, UpdatePageRequest{CardID: SetField[string](nil)})
	require.NoError(t, err)
	assert.Nil(t, updated.CardID)
	require.NotNil(t, updated.BoardID)
	assert.Equal(t, board.ID, *updated.BoardID)
}

func TestUpdatePage_SnapshotsPreviousContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	page := newPage(t, env, space.ID, "Notes", "v1")

	_, err := env.pages.UpdatePage(ctx, space.ID, page.ID, UpdatePageRequest{Title: ptr("Renamed")})
	require.NoError(t, err)

	detail, err := env.pages.GetPage(ctx, space.ID, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", detail.Title)
	assert.Empty(t, detail.Versions, "title-only changes keep no version")

	_, err = env.pages.UpdatePage(ctx, space.ID, page.ID, UpdatePageRequest{Content: ptr("v2")})
	require.NoError(t, err)
	_, err = env.pages.UpdatePage(ctx, space.ID, page.ID, UpdatePageRequest{
		EditorStateJSON: SetField(ptr(`{"doc":1}`)),
	})
	require.NoError(t, err)

	detail, err = env.pages.GetPage(ctx, space.ID, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", detail.Content)
	require.Len(t, detail.Versions, 2)
	assert.Equal(t, "v2", detail.Versions[0].Content)
	assert.Nil(t, detail.Versions[0].EditorStateJSON)
	assert.Equal(t, "v1", detail.Versions[1].Content)
}

func TestUpdatePage_KeepsTwentyVersions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	page := newPage(t, env, space.ID, "Notes", "v0")

	for i := 1; i <= domain.MaxPageVersions+5; i++ {
		_, err := env.pages.UpdatePage(ctx, space.ID, page.ID, UpdatePageRequest{Content: ptr(fmt.Sprintf("v%d", i))})
		require.NoError(t, err)
	}

	detail, err := env.pages.GetPage(ctx, space.ID, page.ID)
	require.NoError(t, err)
	require.Len(t, detail.Versions, domain.MaxPageVersions)
	assert.Equal(t, fmt.Sprintf("v%d", domain.MaxPageVersions+4), detail.Versions[0].Content)
	assert.Equal(t, "v5", detail.Versions[domain.MaxPageVersions-1].Content)
}

func TestRestoreVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	page := newPage(t, env, space.ID, "Notes", "original")

	_, err := env.pages.UpdatePage(ctx, space.ID, page.ID, UpdatePageRequest{Content: ptr("rewritten")})
	require.NoError(t, err)
	detail, err := env.pages.GetPage(ctx, space.ID, page.ID)
	require.NoError(t, err)
	require.Len(t, detail.Versions, 1)

	restored, err := env.pages.RestoreVersion(ctx, space.ID, page.ID, detail.Versions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "original", restored.Content)

	detail, err = env.pages.GetPage(ctx, space.ID, page.ID)
	require.NoError(t, err)
	require.Len(t, detail.Versions, 2)
	assert.Equal(t, "rewritten", detail.Versions[0].Content)

	_, err = env.pages.RestoreVersion(ctx, space.ID, page.ID, "ver-missing")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestAutosave_Outcomes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	page := newPage(t, env, space.ID, "Notes", "start")

	res, err := env.pages.Autosave(ctx, space.ID, page.ID, AutosaveRequest{SessionID: "tab-1", Sequence: 1, Content: "typing"})
	require.NoError(t, err)
	assert.Equal(t, autosave.OutcomeApply, res.Outcome)
	assert.Equal(t, "typing", res.Page.Content)

	res, err = env.pages.Autosave(ctx, space.ID, page.ID, AutosaveRequest{SessionID: "tab-1", Sequence: 2, Content: "typing"})
	require.NoError(t, err)
	assert.Equal(t, autosave.OutcomeSkip, res.Outcome)

	_, err = env.pages.Autosave(ctx, space.ID, page.ID, AutosaveRequest{SessionID: "tab-1", Sequence: 1, Content: "late"})
	require.ErrorIs(t, err, domainerrors.ErrConflict)

	detail, err := env.pages.GetPage(ctx, space.ID, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "typing", detail.Content, "a stale save never lands")
	assert.Len(t, detail.Versions, 1)

	// Sessions are independent.
	res, err = env.pages.Autosave(ctx, space.ID, page.ID, AutosaveRequest{SessionID: "tab-2", Sequence: 1, Content: "other tab"})
	require.NoError(t, err)
	assert.Equal(t, autosave.OutcomeApply, res.Outcome)

	_, err = env.pages.Autosave(ctx, space.ID, page.ID, AutosaveRequest{Sequence: 3, Content: "x"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestAutosave_RepeatAfterOtherSessionLands(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	page := newPage(t, env, space.ID, "Notes", "start")

	_, err := env.pages.Autosave(ctx, space.ID, page.ID, AutosaveRequest{SessionID: "tab-a", Sequence: 1, Content: "from a"})
	require.NoError(t, err)
	_, err = env.pages.Autosave(ctx, space.ID, page.ID, AutosaveRequest{SessionID: "tab-b", Sequence: 1, Content: "from b"})
	require.NoError(t, err)

	res, err := env.pages.Autosave(ctx, space.ID, page.ID, AutosaveRequest{SessionID: "tab-a", Sequence: 2, Content: "from a"})
	require.NoError(t, err)
	assert.Equal(t, autosave.OutcomeApply, res.Outcome)
	assert.Equal(t, "from a", res.Page.Content)
}

func TestAutosave_WaitsForInFlightSave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	page := newPage(t, env, space.ID, "Notes", "start")

	unlock, err := env.pages.autosave.Guard(ctx, page.ID)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := env.pages.Autosave(ctx, space.ID, page.ID, AutosaveRequest{SessionID: "tab-1", Sequence: 4, Content: "queued"})
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("autosave finished while the page was held: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	current, err := env.pages.GetPage(ctx, space.ID, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "start", current.Content)

	unlock()
	require.NoError(t, <-done)
	current, err = env.pages.GetPage(ctx, space.ID, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "queued", current.Content)
}

func TestAutosave_ConcurrentSavesKeepNewest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	page := newPage(t, env, space.ID, "Notes", "start")

	const saves = 8
	var wg sync.WaitGroup
	for seq := 1; seq <= saves; seq++ {
		wg.Go(func() {
			_, err := env.pages.Autosave(ctx, space.ID, page.ID, AutosaveRequest{
				SessionID: "tab-1",
				Sequence:  int64(seq),
				Content:   fmt.Sprintf("v%d", seq),
			})
			if err != nil {
				assert.ErrorIs(t, err, domainerrors.ErrConflict)
			}
		})
	}
	wg.Wait()

	current, err := env.pages.GetPage(ctx, space.ID, page.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("v%d", saves), current.Content)
}

func TestRenderAndImport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	page := newPage(t, env, space.ID, "Notes", "**bold** text")

	rendered, err := env.pages.Render(ctx, space.ID, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p><strong>bold</strong> text</p>", rendered.HTML)
	assert.Equal(t, "Notes", rendered.Title)
	assert.NotContains(t, rendered.PlainText, "**")

	imported, err := env.pages.ImportHTML(ctx, space.ID, "", `<p>Hello <strong>world</strong></p>`)
	require.NoError(t, err)
	assert.Equal(t, "Hello **world**", imported.Markdown)
	assert.Nil(t, imported.Page)

	imported, err = env.pages.ImportHTML(ctx, space.ID, page.ID, `<p>Hello <strong>world</strong></p>`)
	require.NoError(t, err)
	require.NotNil(t, imported.Page)
	assert.Equal(t, "**bold** text\n\nHello **world**", imported.Page.Content)
}

func TestApplyCommand(t *testing.T) {
	env := newTestEnv(t)

	edit, err := env.pages.ApplyCommand(
		markdown.Document{Markdown: "hello world", Selection: markdown.Selection{Start: 0, End: 5}},
		markdown.Command{Name: markdown.CommandToggleBold},
	)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(edit.Document.Markdown, "**hello**"))

	_, err = env.pages.ApplyCommand(markdown.Document{}, markdown.Command{Name: "explode"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.ErrorIs(t, err, markdown.ErrInvalidCommand)
}

func TestDeletePage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	page := newPage(t, env, space.ID, "Notes", "body")

	require.NoError(t, env.pages.DeletePage(ctx, space.ID, page.ID))
	_, err := env.pages.GetPage(ctx, space.ID, page.ID)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
	require.ErrorIs(t, env.pages.DeletePage(ctx, space.ID, page.ID), domainerrors.ErrNotFound)

	pages, err := env.pages.ListPages(ctx, space.ID)
	require.NoError(t, err)
	assert.Empty(t, pages)
}
