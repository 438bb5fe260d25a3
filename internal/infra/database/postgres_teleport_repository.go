// internal/infra/database/postgres_teleport_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pacer_agent/internal/domain/chain"
)

var ErrMissingUsername = fmt.Errorf("teleport has no username")

type PostgresTeleportRepository struct {
	db *sql.DB
}

func NewPostgresTeleportRepository(db *sql.DB) *PostgresTeleportRepository {
	return &PostgresTeleportRepository{db: db}
}

func (r *PostgresTeleportRepository) UpsertTeleport(ctx context.Context, t *chain.Teleport) error {
	if strings.TrimSpace(t.Username) == "" {
		return ErrMissingUsername
	}
	query := `INSERT INTO teleports (username, token_id, x_id, to_address, policy, display_name, block_number, tx_hash, teleport)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
               ON CONFLICT (username) DO UPDATE SET
                   token_id = EXCLUDED.token_id,
                   x_id = EXCLUDED.x_id,
                   to_address = EXCLUDED.to_address,
                   policy = EXCLUDED.policy,
                   display_name = EXCLUDED.display_name,
                   block_number = EXCLUDED.block_number,
                   tx_hash = EXCLUDED.tx_hash,
                   teleport = TRUE,
                   updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query, t.Username, t.TokenID, t.XID, t.To, t.Policy, t.Name, int64(t.BlockNumber), t.TxHash)
	if err != nil {
		return fmt.Errorf("error upserting teleport for %s: %w", t.Username, err)
	}
	return nil
}

func (r *PostgresTeleportRepository) ListTeleportUsernames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT username FROM teleports WHERE teleport = TRUE ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("error listing teleport users: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("error scanning teleport user: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teleport users: %w", err)
	}
	return names, nil
}
