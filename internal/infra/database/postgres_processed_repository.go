// internal/infra/database/postgres_processed_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq" // For pq.Array
)

type PostgresProcessedRepository struct {
	db *sql.DB
}

func NewPostgresProcessedRepository(db *sql.DB) *PostgresProcessedRepository {
	return &PostgresProcessedRepository{db: db}
}

func (r *PostgresProcessedRepository) FilterUnprocessed(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT external_id FROM processed_notifications WHERE external_id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("error querying processed notifications: %w", err)
	}
	defer rows.Close()

	processed := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning processed notification: %w", err)
		}
		processed[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating processed notifications: %w", err)
	}

	var out []string
	for _, id := range ids {
		if _, ok := processed[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *PostgresProcessedRepository) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `INSERT INTO processed_notifications (external_id)
               SELECT UNNEST($1::text[])
               ON CONFLICT (external_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("error marking notifications processed: %w", err)
	}
	return nil
}
