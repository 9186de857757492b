package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// CreateUser mirrors an account owned by the auth service so reports can
// resolve their recipient.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, created_at_ms) VALUES (?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, toMillis(now))
	if err != nil {
		return fmt.Errorf("insert user %s: %w", u.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx, `SELECT id, name, email FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return u, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return u, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}
