package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/sse"
)

func TestCreateBoard_DefaultColumns(t *testing.T) {
	env := newTestEnv(t)
	space, _ := newSpace(t, env, "Alice")

	board, err := env.boards.CreateBoard(context.Background(), space.ID, CreateBoardRequest{
		Title:          "  Roadmap  ",
		DefaultColumns: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Roadmap", board.Title)
	require.Len(t, board.Columns, 3)
	for i, col := range board.Columns {
		assert.Equal(t, i, col.Position)
		assert.NotNil(t, col.Cards)
	}
	assert.Equal(t, "To Do", board.Columns[0].Title)
	assert.Equal(t, "Done", board.Columns[2].Title)
}

func TestCreateBoard_RequiresTitle(t *testing.T) {
	env := newTestEnv(t)
	space, _ := newSpace(t, env, "Alice")

	_, err := env.boards.CreateBoard(context.Background(), space.ID, CreateBoardRequest{Title: "   "})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestGetBoard_GroupsCardsAndRecordsAccess(t *testing.T) {
	env := newTestEnv(t)
	space, _ := newSpace(t, env, "Alice")
	board, cols := newBoard(t, env, space.ID, "Todo", "Done")
	newCards(t, env, space.ID, cols[0].ID, "A", "B")
	newCards(t, env, space.ID, cols[1].ID, "C")

	detail, err := env.boards.GetBoard(context.Background(), space.ID, board.ID)
	require.NoError(t, err)

	require.NotNil(t, detail.LastAccessedAt)
	require.Len(t, detail.Columns, 2)
	require.Len(t, detail.Columns[0].Cards, 2)
	assert.Equal(t, "A", detail.Columns[0].Cards[0].Title)
	assert.Equal(t, "B", detail.Columns[0].Cards[1].Title)
	require.Len(t, detail.Columns[1].Cards, 1)
	assert.Equal(t, "C", detail.Columns[1].Cards[0].Title)

	boards, err := env.boards.ListBoards(context.Background(), space.ID)
	require.NoError(t, err)
	require.Len(t, boards, 1)
}

func TestGetBoard_OtherSpaceIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := newSpace(t, env, "Alice")
	bob, _ := newSpace(t, env, "Bob")
	board, _ := newBoard(t, env, alice.ID)

	_, err := env.boards.GetBoard(context.Background(), bob.ID, board.ID)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCreateCard_DefaultsToFirstPosition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	_, cols := newBoard(t, env, space.ID, "Todo")

	for _, title := range []string{"A", "B", "C"} {
		_, err := env.boards.CreateCard(ctx, space.ID, CreateCardRequest{ColumnID: cols[0].ID, Title: title})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"C", "B", "A"}, cardOrder(t, env, space.ID, cols[0].ID))

	card, err := env.boards.CreateCard(ctx, space.ID, CreateCardRequest{
		ColumnID: cols[0].ID,
		Title:    "D",
		Position: ptr(99),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, card.Position)
	assert.Equal(t, []string{"C", "B", "A", "D"}, cardOrder(t, env, space.ID, cols[0].ID))
}

func TestCreateCard_NormalizesFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	_, cols := newBoard(t, env, space.ID, "Todo")

	card, err := env.boards.CreateCard(ctx, space.ID, CreateCardRequest{
		ColumnID:       cols[0].ID,
		Title:          " Ship it ",
		AssignedUserID: ptr("  "),
		DueDate:        ptr("next friday"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ship it", card.Title)
	assert.Equal(t, "", card.Description)
	assert.Nil(t, card.AssignedUserID)
	assert.Nil(t, card.DueDate, "malformed due dates are dropped")

	card, err = env.boards.CreateCard(ctx, space.ID, CreateCardRequest{
		ColumnID: cols[0].ID,
		Title:    "Dated",
		DueDate:  ptr("2026-03-01"),
	})
	require.NoError(t, err)
	require.NotNil(t, card.DueDate)
	assert.Equal(t, "2026-03-01", *card.DueDate)

	_, err = env.boards.CreateCard(ctx, space.ID, CreateCardRequest{ColumnID: "col-missing", Title: "x"})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestMoveCard_WithinColumn(t *testing.T) {
	env := newTestEnv(t)
	space, _ := newSpace(t, env, "Alice")
	_, cols := newBoard(t, env, space.ID, "Todo")
	ids := newCards(t, env, space.ID, cols[0].ID, "A", "B", "C")

	moved, err := env.boards.MoveCard(context.Background(), space.ID, ids[2], nil, ptr(0))
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Position)
	assert.Equal(t, []string{"C", "A", "B"}, cardOrder(t, env, space.ID, cols[0].ID))
}

func TestUpdateCard_ColumnChangeAppendsAndCompactsSource(t *testing.T) {
	env := newTestEnv(t)
	space, _ := newSpace(t, env, "Alice")
	_, cols := newBoard(t, env, space.ID, "Todo", "Done")
	ids := newCards(t, env, space.ID, cols[0].ID, "A", "B", "C")
	newCards(t, env, space.ID, cols[1].ID, "X", "Y")

	card, err := env.boards.UpdateCard(context.Background(), space.ID, ids[0], UpdateCardRequest{
		ColumnID: &cols[1].ID,
	})
	require.NoError(t, err)

	assert.Equal(t, cols[1].ID, card.ColumnID)
	assert.Equal(t, 2, card.Position)
	assert.Equal(t, []string{"B", "C"}, cardOrder(t, env, space.ID, cols[0].ID))
	assert.Equal(t, []string{"X", "Y", "A"}, cardOrder(t, env, space.ID, cols[1].ID))
}

func TestUpdateCard_ContentOnlyKeepsPosition(t *testing.T) {
	env := newTestEnv(t)
	space, _ := newSpace(t, env, "Alice")
	_, cols := newBoard(t, env, space.ID, "Todo")
	ids := newCards(t, env, space.ID, cols[0].ID, "A", "B")

	card, err := env.boards.UpdateCard(context.Background(), space.ID, ids[1], UpdateCardRequest{
		Title:          ptr("B2"),
		Description:    ptr("details"),
		AssignedUserID: SetField(ptr("user-bob")),
		DueDate:        SetField(ptr("2026-01-31")),
	})
	require.NoError(t, err)
	assert.Equal(t, "B2", card.Title)
	assert.Equal(t, 1, card.Position)
	require.NotNil(t, card.AssignedUserID)
	assert.Equal(t, "user-bob", *card.AssignedUserID)

	card, err = env.boards.UpdateCard(context.Background(), space.ID, ids[1], UpdateCardRequest{
		AssignedUserID: SetField[string](nil),
	})
	require.NoError(t, err)
	assert.Nil(t, card.AssignedUserID)
	require.NotNil(t, card.DueDate, "unset fields are left alone")

	_, err = env.boards.UpdateCard(context.Background(), space.ID, ids[1], UpdateCardRequest{Title: ptr(" ")})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestDeleteCard_CompactsColumn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	_, cols := newBoard(t, env, space.ID, "Todo")
	ids := newCards(t, env, space.ID, cols[0].ID, "A", "B", "C")

	require.NoError(t, env.boards.DeleteCard(ctx, space.ID, ids[1]))
	assert.Equal(t, []string{"A", "C"}, cardOrder(t, env, space.ID, cols[0].ID))

	err := env.boards.DeleteCard(ctx, space.ID, ids[1])
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestConcurrentCardMoves_StayDense(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	_, cols := newBoard(t, env, space.ID, "Left", "Right")
	ids := newCards(t, env, space.ID, cols[0].ID, "A", "B", "C", "D", "E", "F")

	var wg sync.WaitGroup
	for i, cardID := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			target := cols[i%2].ID
			_, err := env.boards.MoveCard(ctx, space.ID, cardID, &target, ptr(0))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	left := cardOrder(t, env, space.ID, cols[0].ID)
	right := cardOrder(t, env, space.ID, cols[1].ID)
	assert.Len(t, left, 3)
	assert.Len(t, right, 3)
}

func TestColumns_CreateMoveDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, _ := newSpace(t, env, "Alice")
	board, cols := newBoard(t, env, space.ID, "A", "B", "C")
	for i, c := range cols {
		assert.Equal(t, i, c.Position, "columns append by default")
	}

	first, err := env.boards.CreateColumn(ctx, space.ID, board.ID, CreateColumnRequest{Title: "First", Position: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Position)

	res, err := env.boards.MoveColumn(ctx, space.ID, first.ID, 3)
	require.NoError(t, err)
	require.Len(t, res.Containers, 1)
	assert.Equal(t, []string{cols[0].ID, cols[1].ID, cols[2].ID, first.ID}, res.Containers[0].ItemIDs)

	newCards(t, env, space.ID, cols[1].ID, "card in B")
	require.NoError(t, env.boards.DeleteColumn(ctx, space.ID, cols[1].ID))

	detail, err := env.boards.GetBoard(ctx, space.ID, board.ID)
	require.NoError(t, err)
	titles := []string{}
	for i, c := range detail.Columns {
		assert.Equal(t, i, c.Position)
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"A", "C", "First"}, titles)

	cards, err := env.boards.ListCards(ctx, space.ID, "")
	require.NoError(t, err)
	assert.Empty(t, cards, "cards of a deleted column are deleted")

	renamed, err := env.boards.RenameColumn(ctx, space.ID, cols[0].ID, " Backlog ")
	require.NoError(t, err)
	assert.Equal(t, "Backlog", renamed.Title)
}

func TestDeleteBoard_Cascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, owner := newSpace(t, env, "Alice")
	board, cols := newBoard(t, env, space.ID, "Todo")
	ids := newCards(t, env, space.ID, cols[0].ID, "A")
	_, err := env.boards.AddComment(ctx, owner, ids[0], "hello")
	require.NoError(t, err)

	require.NoError(t, env.boards.DeleteBoard(ctx, space.ID, board.ID))

	_, err = env.boards.GetCard(ctx, space.ID, ids[0])
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
	require.ErrorIs(t, env.boards.DeleteBoard(ctx, space.ID, board.ID), domainerrors.ErrNotFound)
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space, owner := newSpace(t, env, "Alice")
	_, cols := newBoard(t, env, space.ID, "Todo")
	ids := newCards(t, env, space.ID, cols[0].ID, "A")

	first, err := env.boards.AddComment(ctx, owner, ids[0], "  first  ")
	require.NoError(t, err)
	assert.Equal(t, "first", first.Content)
	assert.Equal(t, "Alice", first.AuthorName)

	_, err = env.boards.AddComment(ctx, owner, ids[0], "second")
	require.NoError(t, err)

	_, err = env.boards.AddComment(ctx, owner, ids[0], "   ")
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	comments, err := env.boards.ListComments(ctx, space.ID, ids[0])
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "second", comments[1].Content)

	stranger := *owner
	stranger.UserID = "user-mallory"
	require.ErrorIs(t, env.boards.DeleteComment(ctx, &stranger, first.ID), domainerrors.ErrForbidden)
	require.NoError(t, env.boards.DeleteComment(ctx, owner, first.ID))

	comments, err = env.boards.ListComments(ctx, space.ID, ids[0])
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestComments_AuthorNameFallsBackToEmail(t *testing.T) {
	env := newTestEnv(t)
	space, owner := newSpace(t, env, "Alice")
	_, cols := newBoard(t, env, space.ID, "Todo")
	ids := newCards(t, env, space.ID, cols[0].ID, "A")

	anon := *owner
	anon.Name = ""
	anon.Email = "joao.silva@example.com"
	comment, err := env.boards.AddComment(context.Background(), &anon, ids[0], "hi")
	require.NoError(t, err)
	assert.Equal(t, "Joao", comment.AuthorName)
}

func TestCardEvents_ReachSpaceSubscribers(t *testing.T) {
	env := newTestEnv(t)
	env.startEvents(t)
	space, _ := newSpace(t, env, "Alice")
	_, cols := newBoard(t, env, space.ID, "Todo")

	client, err := env.sse.Subscribe(space.ID, "user-alice")
	require.NoError(t, err)
	defer env.sse.Unsubscribe(client)

	newCards(t, env, space.ID, cols[0].ID, "A")

	seen := map[sse.EventType]bool{}
	timeout := time.After(time.Second)
	for !seen[sse.EventCardCreated] || !seen[sse.EventCardsReordered] {
		select {
		case ev := <-client.Events:
			assert.Equal(t, space.ID, ev.SpaceID)
			seen[ev.Type] = true
		case <-timeout:
			t.Fatalf("missing events, saw %v", seen)
		}
	}
}
