package sqlite

import (
	"context"

	"github.com/forgeapp/forge-server/internal/domain"
)

const userColumns = `id, created_at, updated_at, email, name, password_hash`

func scanUser(sc scanner) (*domain.User, error) {
	var (
		u                    domain.User
		createdAt, updatedAt string
	)
	if err := sc.Scan(&u.ID, &createdAt, &updatedAt, &u.Email, &u.Name, &u.PasswordHash); err != nil {
		return nil, err
	}

	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user. Returns store.ErrAlreadyExists on a duplicate
// id or email.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		user.Email,
		user.Name,
		user.PasswordHash,
	)
	return mapError(err)
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	return u, mapError(err)
}

// GetUserByEmail retrieves a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	return u, mapError(err)
}
