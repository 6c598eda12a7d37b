package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finanzas/internal/auth"
)

// CreateUser implements auth.UserRepository.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u auth.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", auth.ErrEmailTaken, u.Email)
	}
	if err != nil {
		return unavailable("insert user", err)
	}
	return nil
}

// FindUserByEmail implements auth.UserRepository.
func (r *SQLiteRepository) FindUserByEmail(ctx context.Context, email string) (auth.User, error) {
	return r.findUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email)
}

// FindUserByID implements auth.UserRepository.
func (r *SQLiteRepository) FindUserByID(ctx context.Context, id string) (auth.User, error) {
	return r.findUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) findUser(ctx context.Context, query, arg string) (auth.User, error) {
	var u auth.User
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, unavailable("find user", err)
	}
	return u, nil
}
