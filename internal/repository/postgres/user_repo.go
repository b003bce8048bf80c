package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/agentvault/internal/domain"
)

// GetUserByUsername returns nil, nil for unknown users.
func (r *Repo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, email, username, address, password_hash, role, scopes, created_at, updated_at
		FROM users WHERE username = $1`

	u := &domain.User{}
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Email, &u.Username, &u.Address, &u.PasswordHash, &u.Role, &u.Scopes, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// CreateUser inserts an operator account. The password must already be hashed.
func (r *Repo) CreateUser(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (email, username, address, password_hash, role, scopes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query, u.Email, u.Username, u.Address, u.PasswordHash, u.Role, u.Scopes).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}
