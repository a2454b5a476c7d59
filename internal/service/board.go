package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/forgeapp/forge-server/internal/domain"
	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/id"
	"github.com/forgeapp/forge-server/internal/ordering"
	"github.com/forgeapp/forge-server/internal/sse"
	"github.com/forgeapp/forge-server/internal/store"
)

// maxMoveAttempts bounds retries of a move whose item was moved
// concurrently between the read and the locked rewrite.
const maxMoveAttempts = 3

// BoardService manages boards, their columns and cards, and card comments.
// Every position change goes through an ordering engine: one over cards in
// columns, one over columns in boards.
type BoardService struct {
	store      store.Store
	sseManager *sse.Manager
	search     *SearchService
	cards      *ordering.Engine[store.CardTx]
	columns    *ordering.Engine[store.ColumnTx]
	logger     *slog.Logger
}

// NewBoardService creates a new board service.
func NewBoardService(st store.Store, sseManager *sse.Manager, search *SearchService, logger *slog.Logger) *BoardService {
	return &BoardService{
		store:      st,
		sseManager: sseManager,
		search:     search,
		cards:      ordering.NewEngine[store.CardTx]("cards", st.InCardTx, logger),
		columns:    ordering.NewEngine[store.ColumnTx]("columns", st.InColumnTx, logger),
		logger:     logger,
	}
}

// CreateBoardRequest creates a board.
type CreateBoardRequest struct {
	Title          string `json:"title" validate:"max=200"`
	DefaultColumns bool   `json:"defaultColumns"`
}

// CreateColumnRequest creates a column. A nil Position appends.
type CreateColumnRequest struct {
	Title    string `json:"title" validate:"max=200"`
	Position *int   `json:"position,omitempty"`
}

// ListBoards returns the space's boards, most recently accessed first.
func (s *BoardService) ListBoards(ctx context.Context, spaceID string) ([]*domain.Board, error) {
	boards, err := s.store.ListBoards(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	if boards == nil {
		boards = []*domain.Board{}
	}
	return boards, nil
}

// CreateBoard creates a board, with the default columns when asked.
func (s *BoardService) CreateBoard(ctx context.Context, spaceID string, req CreateBoardRequest) (*domain.BoardDetail, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	title, err := requiredText("title", req.Title)
	if err != nil {
		return nil, err
	}

	var titles []string
	if req.DefaultColumns {
		titles = domain.DefaultColumnTitles
	}
	board, columns, err := s.createBoard(ctx, spaceID, title, titles)
	if err != nil {
		return nil, err
	}
	return buildBoardDetail(board, columns, nil), nil
}

func (s *BoardService) createBoard(ctx context.Context, spaceID, title string, columnTitles []string) (*domain.Board, []*domain.Column, error) {
	at := now()
	entity, err := newEntity(id.PrefixBoard, at)
	if err != nil {
		return nil, nil, err
	}
	board := &domain.Board{Entity: entity, SpaceID: spaceID, Title: title}

	columns := make([]*domain.Column, 0, len(columnTitles))
	for i, t := range columnTitles {
		ce, err := newEntity(id.PrefixColumn, at)
		if err != nil {
			return nil, nil, err
		}
		columns = append(columns, &domain.Column{
			Entity:   ce,
			SpaceID:  spaceID,
			BoardID:  board.ID,
			Title:    t,
			Position: i,
		})
	}

	if err := s.store.CreateBoard(ctx, board, columns); err != nil {
		return nil, nil, fmt.Errorf("create board: %w", err)
	}

	s.sseManager.Emit(sse.NewBoardEvent(sse.EventBoardCreated, board))
	for _, c := range columns {
		s.sseManager.Emit(sse.NewColumnEvent(sse.EventColumnCreated, c))
	}

	s.logger.Info("board created", "board_id", board.ID, "space_id", spaceID, "columns", len(columns))
	return board, columns, nil
}

// GetBoard returns the board with its columns and cards in position order
// and records the access.
func (s *BoardService) GetBoard(ctx context.Context, spaceID, boardID string) (*domain.BoardDetail, error) {
	board, err := s.store.GetBoard(ctx, spaceID, boardID)
	if err != nil {
		return nil, notFound(err, "board", boardID)
	}

	at := now()
	if err := s.store.TouchBoardAccess(ctx, board.ID, at); err != nil {
		s.logger.Warn("failed to record board access", "board_id", board.ID, "error", err)
	} else {
		board.LastAccessedAt = &at
	}

	columns, err := s.store.ListColumns(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	cards, err := s.store.ListBoardCards(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	if err := s.attachLinkedPages(ctx, cards); err != nil {
		return nil, err
	}

	return buildBoardDetail(board, columns, cards), nil
}

// RenameBoard changes a board's title.
func (s *BoardService) RenameBoard(ctx context.Context, spaceID, boardID, title string) (*domain.Board, error) {
	title, err := requiredText("title", title)
	if err != nil {
		return nil, err
	}

	board, err := s.store.GetBoard(ctx, spaceID, boardID)
	if err != nil {
		return nil, notFound(err, "board", boardID)
	}
	board.Title = title
	board.Touch()

	if err := s.store.UpdateBoard(ctx, board); err != nil {
		return nil, notFound(err, "board", boardID)
	}

	s.sseManager.Emit(sse.NewBoardEvent(sse.EventBoardUpdated, board))
	return board, nil
}

// DeleteBoard deletes a board with its columns, cards and comments.
func (s *BoardService) DeleteBoard(ctx context.Context, spaceID, boardID string) error {
	if _, err := s.store.GetBoard(ctx, spaceID, boardID); err != nil {
		return notFound(err, "board", boardID)
	}
	cards, err := s.store.ListBoardCards(ctx, boardID)
	if err != nil {
		return fmt.Errorf("list cards: %w", err)
	}

	if err := s.store.DeleteBoard(ctx, spaceID, boardID); err != nil {
		return notFound(err, "board", boardID)
	}

	s.search.drop(cardIDs(cards)...)
	s.sseManager.Emit(sse.NewDeletedEvent(spaceID, sse.EventBoardDeleted, boardID))

	s.logger.Info("board deleted", "board_id", boardID, "space_id", spaceID, "cards", len(cards))
	return nil
}

// === Columns ===

// CreateColumn adds a column to a board at req.Position.
func (s *BoardService) CreateColumn(ctx context.Context, spaceID, boardID string, req CreateColumnRequest) (*domain.Column, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	title, err := requiredText("title", req.Title)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetBoard(ctx, spaceID, boardID); err != nil {
		return nil, notFound(err, "board", boardID)
	}

	entity, err := newEntity(id.PrefixColumn, now())
	if err != nil {
		return nil, err
	}
	column := &domain.Column{Entity: entity, SpaceID: spaceID, BoardID: boardID, Title: title}
	if req.Position != nil {
		column.Position = max(*req.Position, 0)
	}

	var res ordering.Result
	err = s.columns.Run(ctx, []string{boardID}, func(ctx context.Context, tx store.ColumnTx) error {
		if err := tx.InsertColumn(ctx, column); err != nil {
			return err
		}
		var err error
		res, err = ordering.Place(ctx, tx, boardID, &column.ID, req.Position, s.columns.Now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create column: %w", err)
	}
	column.Position = positionIn(res, column.ID)

	s.sseManager.Emit(sse.NewColumnEvent(sse.EventColumnCreated, column))
	s.sseManager.Emit(sse.NewReorderedEvent(spaceID, "columns", res))
	return column, nil
}

// RenameColumn changes a column's title.
func (s *BoardService) RenameColumn(ctx context.Context, spaceID, columnID, title string) (*domain.Column, error) {
	title, err := requiredText("title", title)
	if err != nil {
		return nil, err
	}

	column, err := s.store.GetColumn(ctx, spaceID, columnID)
	if err != nil {
		return nil, notFound(err, "column", columnID)
	}
	column.Title = title
	column.Touch()

	if err := s.store.UpdateColumn(ctx, column); err != nil {
		return nil, notFound(err, "column", columnID)
	}

	s.sseManager.Emit(sse.NewColumnEvent(sse.EventColumnUpdated, column))
	return column, nil
}

// MoveColumn places a column at index within its board.
func (s *BoardService) MoveColumn(ctx context.Context, spaceID, columnID string, index int) (ordering.Result, error) {
	for range maxMoveAttempts {
		column, err := s.store.GetColumn(ctx, spaceID, columnID)
		if err != nil {
			return ordering.Result{}, notFound(err, "column", columnID)
		}

		res, err := s.columns.Reorder(ctx, column.BoardID, &column.ID, &index)
		if errors.Is(err, ordering.ErrNotInContainer) {
			continue
		}
		if err != nil {
			return ordering.Result{}, fmt.Errorf("move column: %w", err)
		}

		s.sseManager.Emit(sse.NewReorderedEvent(spaceID, "columns", res))
		return res, nil
	}
	return ordering.Result{}, domainerrors.Conflictf("column %s changed while moving, try again", columnID)
}

// DeleteColumn deletes a column with its cards and compacts the board.
func (s *BoardService) DeleteColumn(ctx context.Context, spaceID, columnID string) error {
	column, err := s.store.GetColumn(ctx, spaceID, columnID)
	if err != nil {
		return notFound(err, "column", columnID)
	}
	cards, err := s.store.ListCards(ctx, spaceID, columnID)
	if err != nil {
		return fmt.Errorf("list cards: %w", err)
	}

	res, err := s.columns.Remove(ctx, column.BoardID, column.ID)
	if errors.Is(err, ordering.ErrNotInContainer) {
		return domainerrors.NotFoundf("column %s not found", columnID)
	}
	if err != nil {
		return fmt.Errorf("delete column: %w", err)
	}

	s.search.drop(cardIDs(cards)...)
	s.sseManager.Emit(sse.NewDeletedEvent(spaceID, sse.EventColumnDeleted, columnID))
	s.sseManager.Emit(sse.NewReorderedEvent(spaceID, "columns", res))

	s.logger.Info("column deleted", "column_id", columnID, "board_id", column.BoardID, "cards", len(cards))
	return nil
}

// buildBoardDetail groups cards under their columns. Both slices must be in
// position order.
func buildBoardDetail(board *domain.Board, columns []*domain.Column, cards []*domain.Card) *domain.BoardDetail {
	byColumn := make(map[string][]domain.Card, len(columns))
	for _, c := range cards {
		byColumn[c.ColumnID] = append(byColumn[c.ColumnID], *c)
	}

	detail := &domain.BoardDetail{Board: *board, Columns: make([]domain.ColumnWithCards, 0, len(columns))}
	for _, col := range columns {
		colCards := byColumn[col.ID]
		if colCards == nil {
			colCards = []domain.Card{}
		}
		detail.Columns = append(detail.Columns, domain.ColumnWithCards{Column: *col, Cards: colCards})
	}
	return detail
}

// positionIn returns itemID's index in the first container of res.
func positionIn(res ordering.Result, itemID string) int {
	if len(res.Containers) == 0 {
		return 0
	}
	return max(slices.Index(res.Containers[0].ItemIDs, itemID), 0)
}

func cardIDs(cards []*domain.Card) []string {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return ids
}
