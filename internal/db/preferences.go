package db

import (
	"database/sql"
	"errors"
)

// SetPreference upserts a key in the preferences store.
func (d *DB) SetPreference(key, value string) error {
	_, err := d.Exec(
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		key, value,
	)
	return err
}

// GetPreference returns a preference value, or ErrNotFound.
func (d *DB) GetPreference(key string) (string, error) {
	var value string
	err := d.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}
