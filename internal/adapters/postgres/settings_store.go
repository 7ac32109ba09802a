// Package postgres implements the durable stores over PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
)

// SettingsStore is the concrete key-value store for a PostgreSQL database.
type SettingsStore struct {
	DB *sql.DB
}

// NewSettingsStore create new instance
func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{DB: db}
}

// Get returns the value for key and whether it exists.
func (s *SettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	query := `SELECT value FROM settings WHERE key = $1`

	err := s.DB.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set upserts a key.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO settings (key, value) VALUES ($1, $2)
              ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	_, err := s.DB.ExecContext(ctx, query, key, value)
	return err
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM settings WHERE key = $1`
	_, err := s.DB.ExecContext(ctx, query, key)
	return err
}

// List returns all key/value pairs whose key starts with prefix.
func (s *SettingsStore) List(ctx context.Context, prefix string) (map[string]string, error) {
	query := `SELECT key, value FROM settings WHERE key LIKE $1 || '%'`

	rows, err := s.DB.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
