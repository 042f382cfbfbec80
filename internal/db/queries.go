package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/mailsort/internal/errors"
)

// GetPreference returns the stored value for key.
// The bool is false when the key has never been set or was cleared.
func GetPreference(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewInternal(err)
	}
	return value, true, nil
}

// SetPreference inserts or replaces the value for key.
func SetPreference(ctx context.Context, db *sql.DB, key, value string) error {
	query := `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, key, value, time.Now().Unix()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeletePreference removes key. Deleting a missing key is not an error.
func DeletePreference(ctx context.Context, db *sql.DB, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
