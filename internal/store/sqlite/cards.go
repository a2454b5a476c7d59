package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/ordering"
	"github.com/forgeapp/forge-server/internal/store"
)

const cardColumns = `c.id, c.space_id, c.board_id, c.column_id, c.title, c.description,
	c.assigned_user_id, c.due_date, c.position, c.created_at, c.updated_at`

func scanCard(sc scanner) (*domain.Card, error) {
	var (
		c                    domain.Card
		assignee, dueDate    sql.NullString
		createdAt, updatedAt string
	)
	err := sc.Scan(&c.ID, &c.SpaceID, &c.BoardID, &c.ColumnID, &c.Title, &c.Description,
		&assignee, &dueDate, &c.Position, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.AssignedUserID = stringPtr(assignee)
	c.DueDate = stringPtr(dueDate)

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCard retrieves a card of the space.
func (s *Store) GetCard(ctx context.Context, spaceID, cardID string) (*domain.Card, error) {
	c, err := scanCard(s.db.QueryRowContext(ctx, `
		SELECT `+cardColumns+` FROM cards c WHERE c.id = ? AND c.space_id = ?`, cardID, spaceID))
	return c, mapError(err)
}

// ListCards returns the space's cards, or one column's when columnID is set,
// ordered by board, column position and card position.
func (s *Store) ListCards(ctx context.Context, spaceID, columnID string) ([]*domain.Card, error) {
	query := `
		SELECT ` + cardColumns + ` FROM cards c
		JOIN board_columns col ON col.id = c.column_id
		WHERE c.space_id = ?`
	args := []any{spaceID}
	if columnID != "" {
		query += ` AND c.column_id = ?`
		args = append(args, columnID)
	}
	query += ` ORDER BY c.board_id, col.position, c.position, c.created_at, c.rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCard)
}

// ListBoardCards returns a board's cards ordered by column position and card
// position.
func (s *Store) ListBoardCards(ctx context.Context, boardID string) ([]*domain.Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cardColumns+` FROM cards c
		JOIN board_columns col ON col.id = c.column_id
		WHERE c.board_id = ?
		ORDER BY col.position, c.position, c.created_at, c.rowid`, boardID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCard)
}

// ListAllCards returns every card. Used to rebuild the search index.
func (s *Store) ListAllCards(ctx context.Context) ([]*domain.Card, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards c ORDER BY c.rowid`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCard)
}

// UpdateCard writes the card's content fields.
func (s *Store) UpdateCard(ctx context.Context, card *domain.Card) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cards SET
			title = ?,
			description = ?,
			assigned_user_id = ?,
			due_date = ?,
			updated_at = ?
		WHERE id = ? AND space_id = ?`,
		card.Title,
		card.Description,
		nullableString(card.AssignedUserID),
		nullableString(card.DueDate),
		formatTime(card.UpdatedAt),
		card.ID,
		card.SpaceID,
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// LinkedPages returns the pages linked to each of cardIDs, most recently
// updated first.
func (s *Store) LinkedPages(ctx context.Context, cardIDs []string) (map[string][]domain.PageLink, error) {
	out := make(map[string][]domain.PageLink, len(cardIDs))
	if len(cardIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(cardIDs))
	for i, id := range cardIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT card_id, id, title FROM pages
		WHERE card_id IN (`+placeholders(len(cardIDs))+`)
		ORDER BY updated_at DESC, rowid DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cardID string
			link   domain.PageLink
		)
		if err := rows.Scan(&cardID, &link.ID, &link.Title); err != nil {
			return nil, err
		}
		out[cardID] = append(out[cardID], link)
	}
	return out, rows.Err()
}

// InCardTx runs fn in a transaction over card positions.
func (s *Store) InCardTx(ctx context.Context, fn func(ctx context.Context, tx store.CardTx) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(ctx, cardTx{tx: tx})
	})
}

// cardTx positions cards inside columns.
type cardTx struct {
	tx *sql.Tx
}

func (c cardTx) ListOrdered(ctx context.Context, columnID string) ([]ordering.Item, error) {
	rows, err := c.tx.QueryContext(ctx, `
		SELECT id, column_id, position FROM cards
		WHERE column_id = ?
		ORDER BY position, created_at, rowid`, columnID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanItem)
}

// WritePosition moves the card, keeping board_id in step with the column.
func (c cardTx) WritePosition(ctx context.Context, cardID, columnID string, position int, at time.Time) error {
	res, err := c.tx.ExecContext(ctx, `
		UPDATE cards SET
			column_id = ?,
			board_id = (SELECT board_id FROM board_columns WHERE id = ?),
			position = ?,
			updated_at = ?
		WHERE id = ?`,
		columnID, columnID, position, formatTime(at), cardID)
	if err != nil {
		return mapError(err)
	}
	return expectOne(res)
}

func (c cardTx) Delete(ctx context.Context, cardID string) error {
	res, err := c.tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, cardID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (c cardTx) InsertCard(ctx context.Context, card *domain.Card) error {
	_, err := c.tx.ExecContext(ctx, `
		INSERT INTO cards (
			id, space_id, board_id, column_id, title, description,
			assigned_user_id, due_date, position, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID,
		card.SpaceID,
		card.BoardID,
		card.ColumnID,
		card.Title,
		card.Description,
		nullableString(card.AssignedUserID),
		nullableString(card.DueDate),
		card.Position,
		formatTime(card.CreatedAt),
		formatTime(card.UpdatedAt),
	)
	return mapError(err)
}
