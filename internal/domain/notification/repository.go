// internal/domain/notification/repository.go
package notification

import "context"

// PostRepository persists the agent's own outward posts.
type PostRepository interface {
	Create(ctx context.Context, post *Post) error
	ListRecent(ctx context.Context, limit int) ([]*Post, error)
}

// ProcessedRepository remembers which inbound external IDs have already been
// handled, across restarts.
type ProcessedRepository interface {
	// FilterUnprocessed returns the subset of ids not yet marked processed, in input order.
	FilterUnprocessed(ctx context.Context, ids []string) ([]string, error)
	MarkProcessed(ctx context.Context, ids []string) error
}
