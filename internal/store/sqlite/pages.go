package sqlite

import (
	"context"
	"database/sql"

	"github.com/forgeapp/forge-server/internal/domain"
)

const pageColumns = `id, space_id, title, content, editor_state_json, board_id, card_id, created_at, updated_at`

const versionColumns = `id, page_id, space_id, content, editor_state_json, created_at`

func scanPage(sc scanner) (*domain.Page, error) {
	var (
		p                    domain.Page
		editorState          sql.NullString
		boardID, cardID      sql.NullString
		createdAt, updatedAt string
	)
	err := sc.Scan(&p.ID, &p.SpaceID, &p.Title, &p.Content, &editorState, &boardID, &cardID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.EditorStateJSON = stringPtr(editorState)
	p.BoardID = stringPtr(boardID)
	p.CardID = stringPtr(cardID)

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanVersion(sc scanner) (domain.PageVersion, error) {
	var (
		v           domain.PageVersion
		editorState sql.NullString
		createdAt   string
	)
	if err := sc.Scan(&v.ID, &v.PageID, &v.SpaceID, &v.Content, &editorState, &createdAt); err != nil {
		return v, err
	}
	v.EditorStateJSON = stringPtr(editorState)

	var err error
	v.CreatedAt, err = parseTime(createdAt)
	return v, err
}

// CreatePage inserts a page.
func (s *Store) CreatePage(ctx context.Context, page *domain.Page) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (`+pageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		page.ID,
		page.SpaceID,
		page.Title,
		page.Content,
		nullableString(page.EditorStateJSON),
		nullableString(page.BoardID),
		nullableString(page.CardID),
		formatTime(page.CreatedAt),
		formatTime(page.UpdatedAt),
	)
	return mapError(err)
}

// GetPage retrieves a page of the space.
func (s *Store) GetPage(ctx context.Context, spaceID, pageID string) (*domain.Page, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx, `
		SELECT `+pageColumns+` FROM pages WHERE id = ? AND space_id = ?`, pageID, spaceID))
	return p, mapError(err)
}

// ListPages returns the space's pages, most recently updated first.
func (s *Store) ListPages(ctx context.Context, spaceID string) ([]*domain.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pageColumns+` FROM pages
		WHERE space_id = ?
		ORDER BY updated_at DESC, rowid DESC`, spaceID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPage)
}

// ListAllPages returns every page. Used to rebuild the search index.
func (s *Store) ListAllPages(ctx context.Context) ([]*domain.Page, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+pageColumns+` FROM pages ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPage)
}

// UpdatePage writes the page. When snapshot is set it is inserted and the
// page's history is pruned to domain.MaxPageVersions in the same transaction.
func (s *Store) UpdatePage(ctx context.Context, page *domain.Page, snapshot *domain.PageVersion) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE pages SET
				title = ?,
				content = ?,
				editor_state_json = ?,
				board_id = ?,
				card_id = ?,
				updated_at = ?
			WHERE id = ? AND space_id = ?`,
			page.Title,
			page.Content,
			nullableString(page.EditorStateJSON),
			nullableString(page.BoardID),
			nullableString(page.CardID),
			formatTime(page.UpdatedAt),
			page.ID,
			page.SpaceID,
		)
		if err != nil {
			return mapError(err)
		}
		if err := expectOne(res); err != nil {
			return err
		}

		if snapshot == nil {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO page_versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			snapshot.ID,
			snapshot.PageID,
			snapshot.SpaceID,
			snapshot.Content,
			nullableString(snapshot.EditorStateJSON),
			formatTime(snapshot.CreatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM page_versions
			WHERE page_id = ? AND id NOT IN (
				SELECT id FROM page_versions
				WHERE page_id = ?
				ORDER BY created_at DESC, rowid DESC
				LIMIT ?
			)`, page.ID, page.ID, domain.MaxPageVersions)
		return err
	})
}

// ListPageVersions returns up to limit versions of a page, newest first.
func (s *Store) ListPageVersions(ctx context.Context, pageID string, limit int) ([]domain.PageVersion, error) {
	if limit <= 0 || limit > domain.MaxPageVersions {
		limit = domain.MaxPageVersions
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+` FROM page_versions
		WHERE page_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, pageID, limit)
	if err != nil {
		return nil, err
	}
	versions, err := collect(rows, scanVersion)
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []domain.PageVersion{}
	}
	return versions, nil
}

// GetPageVersion retrieves one version of a page.
func (s *Store) GetPageVersion(ctx context.Context, pageID, versionID string) (*domain.PageVersion, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM page_versions WHERE id = ? AND page_id = ?`, versionID, pageID))
	if err != nil {
		return nil, mapError(err)
	}
	return &v, nil
}

// DeletePage removes a page. Versions and share tokens cascade.
func (s *Store) DeletePage(ctx context.Context, spaceID, pageID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = ? AND space_id = ?`, pageID, spaceID)
	if err != nil {
		return err
	}
	return expectOne(res)
}
