// internal/domain/notification/post.go
package notification

import (
	"database/sql"
	"time"
)

// Post is one outward post made by the agent.
// Corresponds to the 'agent_posts' table.
type Post struct {
	ID                int64
	Content           string
	ExternalID        sql.NullString // platform message ID, when the send succeeded
	SignificanceScore int
	CreatedAt         time.Time
}
