package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/forgeapp/forge-server/internal/domain"
)

const shareColumns = `id, space_id, page_id, token, permission, expires_at,
	created_by_user_id, created_at, revoked_at, last_used_at`

func scanShareToken(sc scanner) (*domain.ShareToken, error) {
	var (
		t                    domain.ShareToken
		permission           string
		expiresAt, createdAt string
		revokedAt, lastUsed  sql.NullString
	)
	err := sc.Scan(&t.ID, &t.SpaceID, &t.PageID, &t.Token, &permission, &expiresAt,
		&t.CreatedByUserID, &createdAt, &revokedAt, &lastUsed)
	if err != nil {
		return nil, err
	}
	t.Permission = domain.Permission(permission)

	if t.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.RevokedAt, err = parseNullableTime(revokedAt); err != nil {
		return nil, err
	}
	if t.LastUsedAt, err = parseNullableTime(lastUsed); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateShareToken inserts a share token.
func (s *Store) CreateShareToken(ctx context.Context, token *domain.ShareToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO page_share_tokens (`+shareColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.SpaceID,
		token.PageID,
		token.Token,
		string(token.Permission),
		formatTime(token.ExpiresAt),
		token.CreatedByUserID,
		formatTime(token.CreatedAt),
		nullTimeString(token.RevokedAt),
		nullTimeString(token.LastUsedAt),
	)
	return mapError(err)
}

// GetShareToken retrieves a token of the space by id, whatever its state.
func (s *Store) GetShareToken(ctx context.Context, spaceID, tokenID string) (*domain.ShareToken, error) {
	t, err := scanShareToken(s.db.QueryRowContext(ctx, `
		SELECT `+shareColumns+` FROM page_share_tokens WHERE id = ? AND space_id = ?`, tokenID, spaceID))
	return t, mapError(err)
}

// GetActiveShareToken returns the token for secret only when it is neither
// revoked nor expired at now.
func (s *Store) GetActiveShareToken(ctx context.Context, secret string, now time.Time) (*domain.ShareToken, error) {
	t, err := scanShareToken(s.db.QueryRowContext(ctx, `
		SELECT `+shareColumns+` FROM page_share_tokens
		WHERE token = ? AND revoked_at IS NULL AND expires_at > ?`, secret, formatTime(now)))
	return t, mapError(err)
}

// ListShareTokens returns a page's tokens, newest first.
func (s *Store) ListShareTokens(ctx context.Context, pageID string) ([]*domain.ShareToken, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shareColumns+` FROM page_share_tokens
		WHERE page_id = ?
		ORDER BY created_at DESC, rowid DESC`, pageID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanShareToken)
}

// RevokeShareToken sets revoked_at. Revoking twice keeps the first time.
func (s *Store) RevokeShareToken(ctx context.Context, tokenID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE page_share_tokens SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`,
		formatTime(at), tokenID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// TouchShareToken records a use of the token.
func (s *Store) TouchShareToken(ctx context.Context, tokenID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE page_share_tokens SET last_used_at = ? WHERE id = ?`, formatTime(at), tokenID)
	if err != nil {
		return err
	}
	return expectOne(res)
}
