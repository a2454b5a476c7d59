package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/store"
)

func TestListBoards_MostRecentlyAccessedFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	clock := newTestClock()

	seedSpace(t, s, clock, "space-1", "user-1")
	seedBoard(t, s, clock, "space-1", "board-a", "To Do")
	seedBoard(t, s, clock, "space-1", "board-b", "To Do")

	boards, err := s.ListBoards(ctx, "space-1")
	if err != nil {
		t.Fatalf("ListBoards: %v", err)
	}
	if len(boards) != 2 || boards[0].ID != "board-b" {
		t.Fatalf("expected board-b first, got %v", boardIDs(boards))
	}

	if err := s.TouchBoardAccess(ctx, "board-a", clock.next()); err != nil {
		t.Fatalf("TouchBoardAccess: %v", err)
	}

	boards, err = s.ListBoards(ctx, "space-1")
	if err != nil {
		t.Fatalf("ListBoards: %v", err)
	}
	if boards[0].ID != "board-a" {
		t.Errorf("expected board-a first after access, got %v", boardIDs(boards))
	}
	if boards[0].LastAccessedAt == nil {
		t.Error("expected LastAccessedAt to be set")
	}
}

func TestGetBoard_OtherSpace(t *testing.T) {
	s := newTestStore(t)
	clock := newTestClock()

	seedSpace(t, s, clock, "space-1", "user-1")
	seedSpace(t, s, clock, "space-2", "user-2")
	seedBoard(t, s, clock, "space-1", "board-a")

	if _, err := s.GetBoard(context.Background(), "space-2", "board-a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound across spaces, got %v", err)
	}
}

func TestColumnsOrderedByPosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	clock := newTestClock()

	seedSpace(t, s, clock, "space-1", "user-1")
	seedBoard(t, s, clock, "space-1", "board-a", domain.DefaultColumnTitles...)

	cols, err := s.ListColumns(ctx, "board-a")
	if err != nil {
		t.Fatalf("ListColumns: %v", err)
	}
	for i, c := range cols {
		if c.Position != i || c.Title != domain.DefaultColumnTitles[i] {
			t.Errorf("column %d: got %q at %d", i, c.Title, c.Position)
		}
	}

	col := cols[1]
	col.Title = "Doing"
	col.UpdatedAt = clock.next()
	if err := s.UpdateColumn(ctx, col); err != nil {
		t.Fatalf("UpdateColumn: %v", err)
	}
	got, err := s.GetColumn(ctx, "space-1", col.ID)
	if err != nil {
		t.Fatalf("GetColumn: %v", err)
	}
	if got.Title != "Doing" {
		t.Errorf("Title: got %q, want Doing", got.Title)
	}
}

func TestDeleteBoard_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	clock := newTestClock()

	seedSpace(t, s, clock, "space-1", "user-1")
	cols := seedBoard(t, s, clock, "space-1", "board-a", "To Do")
	card := insertTestCard(t, s, clock, cols[0], "card-1", 0)

	if err := s.CreateComment(ctx, &domain.Comment{
		Entity: entityAt("cmt-1", clock.next()), SpaceID: "space-1", CardID: card.ID,
		AuthorUserID: "user-1", AuthorName: "Owner", Content: "hello",
	}); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	boardID := "board-a"
	page := &domain.Page{
		Entity: entityAt("page-1", clock.next()), SpaceID: "space-1",
		Title: "Notes", Content: "# Notes", BoardID: &boardID, CardID: &card.ID,
	}
	if err := s.CreatePage(ctx, page); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}

	if err := s.DeleteBoard(ctx, "space-1", "board-a"); err != nil {
		t.Fatalf("DeleteBoard: %v", err)
	}

	for _, table := range []string{"board_columns", "cards", "card_comments"} {
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s: expected 0 rows after delete, got %d", table, n)
		}
	}

	// The page survives with its links cleared.
	got, err := s.GetPage(ctx, "space-1", "page-1")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if got.BoardID != nil || got.CardID != nil {
		t.Errorf("expected nil links, got board=%v card=%v", got.BoardID, got.CardID)
	}
}

func boardIDs(boards []*domain.Board) []string {
	ids := make([]string, len(boards))
	for i, b := range boards {
		ids[i] = b.ID
	}
	return ids
}
