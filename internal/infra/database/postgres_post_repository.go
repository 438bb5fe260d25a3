// internal/infra/database/postgres_post_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"pacer_agent/internal/domain/notification"
)

type PostgresPostRepository struct {
	db *sql.DB
}

func NewPostgresPostRepository(db *sql.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

func (r *PostgresPostRepository) Create(ctx context.Context, post *notification.Post) error {
	query := `INSERT INTO agent_posts (content, external_id, significance_score)
               VALUES ($1, $2, $3)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, post.Content, post.ExternalID, post.SignificanceScore).Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating post: %w", err)
	}
	return nil
}

// ListRecent returns up to limit posts, newest first.
func (r *PostgresPostRepository) ListRecent(ctx context.Context, limit int) ([]*notification.Post, error) {
	query := `SELECT id, content, external_id, significance_score, created_at
               FROM agent_posts ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing recent posts: %w", err)
	}
	defer rows.Close()

	var posts []*notification.Post
	for rows.Next() {
		p := &notification.Post{}
		if err := rows.Scan(&p.ID, &p.Content, &p.ExternalID, &p.SignificanceScore, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}
	return posts, nil
}
