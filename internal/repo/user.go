package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crucial707/cashcard/internal/auth"
	"github.com/crucial707/cashcard/internal/models"
	"github.com/jmoiron/sqlx"
)

// ==========================
// UserRepo
// ==========================

// UserRepo is the PostgreSQL-backed credential directory.
type UserRepo struct {
	DB *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// Lookup finds a user by case-insensitive username. It returns auth.ErrUnknownUser when absent.
func (r *UserRepo) Lookup(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := r.DB.GetContext(ctx, &u,
		`SELECT id, username, password_hash, role FROM users WHERE LOWER(username) = LOWER($1)`,
		username,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, auth.ErrUnknownUser
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

// Upsert inserts u or replaces the hash and role of the existing user with the same name.
func (r *UserRepo) Upsert(ctx context.Context, u models.User) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role)
		 VALUES ($1, $2, $3)
		 ON CONFLICT ((LOWER(username))) DO UPDATE
		 SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role`,
		u.Username, u.PasswordHash, u.Role,
	)
	if err != nil {
		return fmt.Errorf("upsert user %q: %w", u.Username, err)
	}
	return nil
}
