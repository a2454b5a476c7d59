package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/ordering"
	"github.com/forgeapp/forge-server/internal/store"
)

const (
	boardColumns  = `id, space_id, title, last_accessed_at, created_at, updated_at`
	columnColumns = `id, space_id, board_id, title, position, created_at, updated_at`
)

func scanBoard(sc scanner) (*domain.Board, error) {
	var (
		b                    domain.Board
		lastAccessed         sql.NullString
		createdAt, updatedAt string
	)
	if err := sc.Scan(&b.ID, &b.SpaceID, &b.Title, &lastAccessed, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if b.LastAccessedAt, err = parseNullableTime(lastAccessed); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanColumn(sc scanner) (*domain.Column, error) {
	var (
		c                    domain.Column
		createdAt, updatedAt string
	)
	if err := sc.Scan(&c.ID, &c.SpaceID, &c.BoardID, &c.Title, &c.Position, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func insertColumn(ctx context.Context, q queryer, c *domain.Column) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO board_columns (`+columnColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SpaceID, c.BoardID, c.Title, c.Position,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	return mapError(err)
}

// CreateBoard inserts the board and its initial columns in one transaction.
// Column positions are taken as given.
func (s *Store) CreateBoard(ctx context.Context, board *domain.Board, columns []*domain.Column) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO boards (`+boardColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			board.ID, board.SpaceID, board.Title, nullTimeString(board.LastAccessedAt),
			formatTime(board.CreatedAt), formatTime(board.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		for _, c := range columns {
			if err := insertColumn(ctx, tx, c); err != nil {
				return fmt.Errorf("insert column %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// GetBoard retrieves a board of the space.
func (s *Store) GetBoard(ctx context.Context, spaceID, boardID string) (*domain.Board, error) {
	b, err := scanBoard(s.db.QueryRowContext(ctx, `
		SELECT `+boardColumns+` FROM boards WHERE id = ? AND space_id = ?`, boardID, spaceID))
	return b, mapError(err)
}

// ListBoards returns the space's boards, most recently accessed first.
// Boards never opened sort by creation time.
func (s *Store) ListBoards(ctx context.Context, spaceID string) ([]*domain.Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+boardColumns+` FROM boards
		WHERE space_id = ?
		ORDER BY COALESCE(last_accessed_at, created_at) DESC, rowid DESC`, spaceID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBoard)
}

// UpdateBoard writes the board's title.
func (s *Store) UpdateBoard(ctx context.Context, board *domain.Board) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE boards SET title = ?, updated_at = ? WHERE id = ? AND space_id = ?`,
		board.Title, formatTime(board.UpdatedAt), board.ID, board.SpaceID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// TouchBoardAccess records that the board was opened.
func (s *Store) TouchBoardAccess(ctx context.Context, boardID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE boards SET last_accessed_at = ? WHERE id = ?`, formatTime(at), boardID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// DeleteBoard removes the board. Columns, cards and comments cascade; pages
// linked to the board or its cards are unlinked.
func (s *Store) DeleteBoard(ctx context.Context, spaceID, boardID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id = ? AND space_id = ?`, boardID, spaceID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// GetColumn retrieves a column of the space.
func (s *Store) GetColumn(ctx context.Context, spaceID, columnID string) (*domain.Column, error) {
	c, err := scanColumn(s.db.QueryRowContext(ctx, `
		SELECT `+columnColumns+` FROM board_columns WHERE id = ? AND space_id = ?`, columnID, spaceID))
	return c, mapError(err)
}

// ListColumns returns a board's columns by position.
func (s *Store) ListColumns(ctx context.Context, boardID string) ([]*domain.Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columnColumns+` FROM board_columns
		WHERE board_id = ?
		ORDER BY position, created_at, rowid`, boardID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanColumn)
}

// UpdateColumn writes the column's title.
func (s *Store) UpdateColumn(ctx context.Context, column *domain.Column) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE board_columns SET title = ?, updated_at = ? WHERE id = ? AND space_id = ?`,
		column.Title, formatTime(column.UpdatedAt), column.ID, column.SpaceID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// InColumnTx runs fn in a transaction over column positions.
func (s *Store) InColumnTx(ctx context.Context, fn func(ctx context.Context, tx store.ColumnTx) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(ctx, columnTx{tx: tx})
	})
}

// columnTx positions columns inside boards.
type columnTx struct {
	tx *sql.Tx
}

func (c columnTx) ListOrdered(ctx context.Context, boardID string) ([]ordering.Item, error) {
	rows, err := c.tx.QueryContext(ctx, `
		SELECT id, board_id, position FROM board_columns
		WHERE board_id = ?
		ORDER BY position, created_at, rowid`, boardID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanItem)
}

func (c columnTx) WritePosition(ctx context.Context, columnID, boardID string, position int, at time.Time) error {
	res, err := c.tx.ExecContext(ctx, `
		UPDATE board_columns SET board_id = ?, position = ?, updated_at = ? WHERE id = ?`,
		boardID, position, formatTime(at), columnID)
	if err != nil {
		return mapError(err)
	}
	return expectOne(res)
}

// Delete removes the column; its cards and their comments cascade.
func (c columnTx) Delete(ctx context.Context, columnID string) error {
	res, err := c.tx.ExecContext(ctx, `DELETE FROM board_columns WHERE id = ?`, columnID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (c columnTx) InsertColumn(ctx context.Context, column *domain.Column) error {
	return insertColumn(ctx, c.tx, column)
}

func scanItem(sc scanner) (ordering.Item, error) {
	var it ordering.Item
	err := sc.Scan(&it.ID, &it.ContainerID, &it.Position)
	return it, err
}
