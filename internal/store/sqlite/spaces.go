package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/store"
)

const (
	spaceColumns  = `id, created_at, updated_at, name, team_id`
	memberColumns = `space_id, user_id, email, name, role, created_at, updated_at`
)

func scanSpace(sc scanner) (*domain.Space, error) {
	var (
		sp                   domain.Space
		createdAt, updatedAt string
	)
	if err := sc.Scan(&sp.ID, &createdAt, &updatedAt, &sp.Name, &sp.TeamID); err != nil {
		return nil, err
	}

	var err error
	if sp.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sp.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &sp, nil
}

func scanMember(sc scanner) (domain.Member, error) {
	var (
		m                    domain.Member
		role                 string
		createdAt, updatedAt string
	)
	if err := sc.Scan(&m.SpaceID, &m.UserID, &m.Email, &m.Name, &role, &createdAt, &updatedAt); err != nil {
		return domain.Member{}, err
	}
	m.Role = domain.Role(role)

	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Member{}, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Member{}, err
	}
	return m, nil
}

func insertMember(ctx context.Context, q queryer, m *domain.Member) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO space_members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.SpaceID, m.UserID, m.Email, m.Name, string(m.Role),
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	return mapError(err)
}

// CreateSpace inserts the space and its owner membership in one transaction.
func (s *Store) CreateSpace(ctx context.Context, space *domain.Space, owner *domain.Member) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO spaces (`+spaceColumns+`) VALUES (?, ?, ?, ?, ?)`,
			space.ID, formatTime(space.CreatedAt), formatTime(space.UpdatedAt), space.Name, space.TeamID,
		)
		if err != nil {
			return mapError(err)
		}

		if err := insertMember(ctx, tx, owner); err != nil {
			return fmt.Errorf("insert owner: %w", err)
		}
		return nil
	})
}

// GetSpace retrieves a space with its members.
func (s *Store) GetSpace(ctx context.Context, id string) (*domain.Space, error) {
	sp, err := scanSpace(s.db.QueryRowContext(ctx, `SELECT `+spaceColumns+` FROM spaces WHERE id = ?`, id))
	if err != nil {
		return nil, mapError(err)
	}

	if sp.Members, err = s.ListMembers(ctx, id); err != nil {
		return nil, err
	}
	return sp, nil
}

// ListSpacesForUser returns the spaces userID belongs to, oldest first,
// each with its members.
func (s *Store) ListSpacesForUser(ctx context.Context, userID string) ([]*domain.Space, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.created_at, s.updated_at, s.name, s.team_id
		FROM spaces s
		JOIN space_members m ON m.space_id = s.id
		WHERE m.user_id = ?
		ORDER BY s.created_at, s.rowid`, userID)
	if err != nil {
		return nil, err
	}

	spaces, err := collect(rows, scanSpace)
	if err != nil {
		return nil, err
	}

	for _, sp := range spaces {
		if sp.Members, err = s.ListMembers(ctx, sp.ID); err != nil {
			return nil, fmt.Errorf("list members of %s: %w", sp.ID, err)
		}
	}
	return spaces, nil
}

// GetMember retrieves a membership.
func (s *Store) GetMember(ctx context.Context, spaceID, userID string) (*domain.Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, `
		SELECT `+memberColumns+` FROM space_members WHERE space_id = ? AND user_id = ?`, spaceID, userID))
	if err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

// GetMemberByEmail retrieves a membership by normalized email.
func (s *Store) GetMemberByEmail(ctx context.Context, spaceID, email string) (*domain.Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, `
		SELECT `+memberColumns+` FROM space_members WHERE space_id = ? AND email = ?`, spaceID, email))
	if err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

// ListMembers returns a space's members in join order.
func (s *Store) ListMembers(ctx context.Context, spaceID string) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memberColumns+` FROM space_members WHERE space_id = ? ORDER BY created_at, rowid`, spaceID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanMember)
}

// UpsertMember inserts the member, or updates role and name when the email
// already belongs to the space.
func (s *Store) UpsertMember(ctx context.Context, member *domain.Member) (*domain.Member, error) {
	var out domain.Member
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE space_members SET role = ?, name = ?, updated_at = ?
			WHERE space_id = ? AND email = ?`,
			string(member.Role), member.Name, formatTime(member.UpdatedAt), member.SpaceID, member.Email,
		)
		if err != nil {
			return err
		}
		if err := expectOne(res); errors.Is(err, store.ErrNotFound) {
			if err := insertMember(ctx, tx, member); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		out, err = scanMember(tx.QueryRowContext(ctx, `
			SELECT `+memberColumns+` FROM space_members WHERE space_id = ? AND email = ?`,
			member.SpaceID, member.Email))
		return mapError(err)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMember removes a membership.
func (s *Store) DeleteMember(ctx context.Context, spaceID, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM space_members WHERE space_id = ? AND user_id = ?`, spaceID, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}
