package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/ordering"
)

// newTestBoard creates a board with the default columns and returns it.
func (ts *testServer) newTestBoard(t *testing.T, token, spaceID string) domain.BoardDetail {
	t.Helper()
	resp := ts.api.Post("/api/v1/spaces/"+spaceID+"/boards", bearer(token), map[string]any{
		"title":          "Sprint",
		"defaultColumns": true,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[domain.BoardDetail](t, resp).Data
}

// newTestCard creates a card at position in a column.
func (ts *testServer) newTestCard(t *testing.T, token, spaceID, columnID, title string, position int) domain.Card {
	t.Helper()
	resp := ts.api.Post("/api/v1/spaces/"+spaceID+"/cards", bearer(token), map[string]any{
		"columnId": columnID,
		"title":    title,
		"position": position,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[domain.Card](t, resp).Data
}

func (ts *testServer) columnTitles(t *testing.T, token, spaceID, columnID string) []string {
	t.Helper()
	resp := ts.api.Get("/api/v1/spaces/"+spaceID+"/cards?columnId="+columnID, bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	cards := decode[CardsResponse](t, resp).Data.Cards
	titles := make([]string, 0, len(cards))
	for i, c := range cards {
		require.Equal(t, i, c.Position)
		titles = append(titles, c.Title)
	}
	return titles
}

func TestBoards_CreateGetAndList(t *testing.T) {
	ts := setupTestServer(t)
	token, spaceID := ts.bootstrap(t, "Alice", "alice@example.com")

	board := ts.newTestBoard(t, token, spaceID)
	require.Len(t, board.Columns, 3)
	assert.Equal(t, "To Do", board.Columns[0].Title)
	assert.Equal(t, "Done", board.Columns[2].Title)

	ts.newTestCard(t, token, spaceID, board.Columns[0].ID, "Write tests", 0)

	resp := ts.api.Get("/api/v1/spaces/"+spaceID+"/boards/"+board.ID, bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	detail := decode[domain.BoardDetail](t, resp).Data
	require.Len(t, detail.Columns[0].Cards, 1)
	assert.Equal(t, "Write tests", detail.Columns[0].Cards[0].Title)

	resp = ts.api.Get("/api/v1/spaces/"+spaceID+"/boards", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
	// The seeded board and the new one.
	assert.Len(t, decode[BoardsResponse](t, resp).Data.Boards, 2)
}

func TestBoards_TitleRequired(t *testing.T) {
	ts := setupTestServer(t)
	token, spaceID := ts.bootstrap(t, "Alice", "alice@example.com")

	resp := ts.api.Post("/api/v1/spaces/"+spaceID+"/boards", bearer(token), map[string]any{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decode[any](t, resp).Error.Code)
}

func TestBoards_TenantIsolation(t *testing.T) {
	ts := setupTestServer(t)
	aliceToken, aliceSpace := ts.bootstrap(t, "Alice", "alice@example.com")
	bobToken, bobSpace := ts.bootstrap(t, "Bob", "bob@example.com")
	board := ts.newTestBoard(t, aliceToken, aliceSpace)

	// Not a member of Alice's space.
	resp := ts.api.Get("/api/v1/spaces/"+aliceSpace+"/boards/"+board.ID, bearer(bobToken))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// Alice's board looked up through Bob's own space does not exist.
	resp = ts.api.Get("/api/v1/spaces/"+bobSpace+"/boards/"+board.ID, bearer(bobToken))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decode[any](t, resp).Error.Code)

	resp = ts.api.Get("/api/v1/spaces/space-missing/boards", bearer(bobToken))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestBoards_RenameAndDelete(t *testing.T) {
	ts := setupTestServer(t)
	token, spaceID := ts.bootstrap(t, "Alice", "alice@example.com")
	board := ts.newTestBoard(t, token, spaceID)

	resp := ts.api.Patch("/api/v1/spaces/"+spaceID+"/boards/"+board.ID, bearer(token), map[string]any{"title": "  Roadmap "})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Roadmap", decode[domain.Board](t, resp).Data.Title)

	resp = ts.api.Delete("/api/v1/spaces/"+spaceID+"/boards/"+board.ID, bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, DeletedResponse{ID: board.ID, Deleted: true}, decode[DeletedResponse](t, resp).Data)

	resp = ts.api.Get("/api/v1/spaces/"+spaceID+"/boards/"+board.ID, bearer(token))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestColumns_CreateMoveDelete(t *testing.T) {
	ts := setupTestServer(t)
	token, spaceID := ts.bootstrap(t, "Alice", "alice@example.com")
	board := ts.newTestBoard(t, token, spaceID)

	resp := ts.api.Post("/api/v1/spaces/"+spaceID+"/boards/"+board.ID+"/columns", bearer(token), map[string]any{"title": "Review"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	review := decode[domain.Column](t, resp).Data
	assert.Equal(t, 3, review.Position)

	resp = ts.api.Post("/api/v1/spaces/"+spaceID+"/columns/"+review.ID+"/move", bearer(token), map[string]any{"position": 0})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	result := decode[ordering.Result](t, resp).Data
	require.NotEmpty(t, result.Containers)
	assert.Equal(t, review.ID, result.Containers[0].ItemIDs[0])

	resp = ts.api.Delete("/api/v1/spaces/"+spaceID+"/columns/"+board.Columns[1].ID, bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/spaces/"+spaceID+"/boards/"+board.ID, bearer(token))
	detail := decode[domain.BoardDetail](t, resp).Data
	titles := make([]string, 0, len(detail.Columns))
	for i, c := range detail.Columns {
		assert.Equal(t, i, c.Position)
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"Review", "To Do", "Done"}, titles)
}

func TestCards_UpdateMovesAndClears(t *testing.T) {
	ts := setupTestServer(t)
	token, spaceID := ts.bootstrap(t, "Alice", "alice@example.com")
	board := ts.newTestBoard(t, token, spaceID)
	todo, doing := board.Columns[0].ID, board.Columns[1].ID

	a := ts.newTestCard(t, token, spaceID, todo, "A", 0)
	ts.newTestCard(t, token, spaceID, todo, "B", 1)
	ts.newTestCard(t, token, spaceID, todo, "C", 2)

	// Within the column.
	resp := ts.api.Patch("/api/v1/spaces/"+spaceID+"/cards/"+a.ID, bearer(token), map[string]any{"position": 2})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, []string{"B", "C", "A"}, ts.columnTitles(t, token, spaceID, todo))

	// To another column without a position appends there and compacts the source.
	resp = ts.api.Patch("/api/v1/spaces/"+spaceID+"/cards/"+a.ID, bearer(token), map[string]any{
		"columnId": doing,
		"dueDate":  "2025-06-30",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	moved := decode[domain.Card](t, resp).Data
	assert.Equal(t, doing, moved.ColumnID)
	require.NotNil(t, moved.DueDate)
	assert.Equal(t, "2025-06-30", *moved.DueDate)
	assert.Equal(t, []string{"B", "C"}, ts.columnTitles(t, token, spaceID, todo))
	assert.Equal(t, []string{"A"}, ts.columnTitles(t, token, spaceID, doing))

	// Explicit null clears; absent leaves alone.
	resp = ts.api.Patch("/api/v1/spaces/"+spaceID+"/cards/"+a.ID, bearer(token), map[string]any{
		"dueDate": nil,
		"title":   "A2",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[domain.Card](t, resp).Data
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, "A2", updated.Title)
	assert.Equal(t, doing, updated.ColumnID)
}

func TestCards_MalformedDueDateIsNull(t *testing.T) {
	ts := setupTestServer(t)
	token, spaceID := ts.bootstrap(t, "Alice", "alice@example.com")
	board := ts.newTestBoard(t, token, spaceID)

	resp := ts.api.Post("/api/v1/spaces/"+spaceID+"/cards", bearer(token), map[string]any{
		"columnId": board.Columns[0].ID,
		"title":    "Taxes",
		"dueDate":  "next friday",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Nil(t, decode[domain.Card](t, resp).Data.DueDate)
}

func TestCards_MoveAndDelete(t *testing.T) {
	ts := setupTestServer(t)
	token, spaceID := ts.bootstrap(t, "Alice", "alice@example.com")
	board := ts.newTestBoard(t, token, spaceID)
	todo, done := board.Columns[0].ID, board.Columns[2].ID

	a := ts.newTestCard(t, token, spaceID, todo, "A", 0)
	b := ts.newTestCard(t, token, spaceID, todo, "B", 1)
	ts.newTestCard(t, token, spaceID, done, "Z", 0)

	resp := ts.api.Post("/api/v1/spaces/"+spaceID+"/cards/"+b.ID+"/move", bearer(token), map[string]any{
		"columnId": done,
		"position": 0,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, []string{"B", "Z"}, ts.columnTitles(t, token, spaceID, done))

	resp = ts.api.Delete("/api/v1/spaces/"+spaceID+"/cards/"+a.ID, bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, ts.columnTitles(t, token, spaceID, todo))

	resp = ts.api.Get("/api/v1/spaces/"+spaceID+"/cards/"+a.ID, bearer(token))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestComments_AddListDelete(t *testing.T) {
	ts := setupTestServer(t)
	token, spaceID := ts.bootstrap(t, "Alice", "alice@example.com")
	board := ts.newTestBoard(t, token, spaceID)
	card := ts.newTestCard(t, token, spaceID, board.Columns[0].ID, "A", 0)

	base := "/api/v1/spaces/" + spaceID + "/cards/" + card.ID + "/comments"
	resp := ts.api.Post(base, bearer(token), map[string]any{"content": " first "})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	first := decode[domain.Comment](t, resp).Data
	assert.Equal(t, "first", first.Content)
	assert.Equal(t, "Alice", first.AuthorName)

	resp = ts.api.Post(base, bearer(token), map[string]any{"content": "second"})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.api.Get(base, bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
	comments := decode[CommentsResponse](t, resp).Data.Comments
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Content)

	resp = ts.api.Post(base, bearer(token), map[string]any{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Delete("/api/v1/spaces/"+spaceID+"/comments/"+first.ID, bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
}
