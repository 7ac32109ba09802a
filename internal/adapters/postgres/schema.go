package postgres

import (
	"context"
	"database/sql"
)

// EnsureSchema creates the tables the stores need. It is safe to call on
// every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
            key   TEXT PRIMARY KEY,
            value TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS execution_log (
            id          BIGSERIAL PRIMARY KEY,
            date        TEXT NOT NULL,
            action      TEXT NOT NULL DEFAULT '',
            kind        TEXT NOT NULL DEFAULT '',
            outcome     TEXT NOT NULL,
            tier        INT NOT NULL DEFAULT 0,
            duration_ms BIGINT NOT NULL DEFAULT 0,
            reason      TEXT NOT NULL DEFAULT '',
            superseded  BOOLEAN NOT NULL DEFAULT FALSE,
            created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_execution_log_date ON execution_log (date)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
