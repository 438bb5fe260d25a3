package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS agent_posts (
		id                 BIGSERIAL PRIMARY KEY,
		content            TEXT NOT NULL,
		external_id        TEXT,
		significance_score INTEGER NOT NULL DEFAULT 0,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS agent_posts_created_at_idx ON agent_posts (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS processed_notifications (
		external_id  TEXT PRIMARY KEY,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS teleports (
		username     TEXT PRIMARY KEY,
		token_id     TEXT NOT NULL,
		x_id         TEXT NOT NULL,
		to_address   TEXT NOT NULL,
		policy       TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		block_number BIGINT NOT NULL,
		tx_hash      TEXT NOT NULL,
		teleport     BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables the agent needs if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
