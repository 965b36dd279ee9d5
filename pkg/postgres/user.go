package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/boat-hire/pkg/db"
)

// UpsertUser stores or replaces the user's email address
func (d *DB) UpsertUser(ctx context.Context, userID, email string) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO app_user (id, email) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, updated_at = NOW()
	`, userID, email)
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", userID, err)
	}
	return nil
}

// GetUserEmail returns the user's email address
func (d *DB) GetUserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := d.pool.QueryRow(ctx, `SELECT email FROM app_user WHERE id = $1`, userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: user %s", db.ErrNotFound, userID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get email for user %s: %w", userID, err)
	}
	return email, nil
}
