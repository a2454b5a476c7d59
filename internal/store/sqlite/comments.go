package sqlite

import (
	"context"

	"github.com/forgeapp/forge-server/internal/domain"
)

const commentColumns = `id, space_id, card_id, author_user_id, author_name, content, created_at, updated_at`

func scanComment(sc scanner) (*domain.Comment, error) {
	var (
		c                    domain.Comment
		createdAt, updatedAt string
	)
	err := sc.Scan(&c.ID, &c.SpaceID, &c.CardID, &c.AuthorUserID, &c.AuthorName, &c.Content, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateComment inserts a comment.
func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.SpaceID, comment.CardID, comment.AuthorUserID, comment.AuthorName, comment.Content,
		formatTime(comment.CreatedAt), formatTime(comment.UpdatedAt),
	)
	return mapError(err)
}

// GetComment retrieves a comment of the space.
func (s *Store) GetComment(ctx context.Context, spaceID, commentID string) (*domain.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx, `
		SELECT `+commentColumns+` FROM card_comments WHERE id = ? AND space_id = ?`, commentID, spaceID))
	return c, mapError(err)
}

// ListComments returns a card's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, cardID string) ([]*domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+` FROM card_comments
		WHERE card_id = ?
		ORDER BY created_at, rowid`, cardID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanComment)
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, commentID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM card_comments WHERE id = ?`, commentID)
	if err != nil {
		return err
	}
	return expectOne(res)
}
