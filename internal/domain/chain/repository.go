// internal/domain/chain/repository.go
package chain

import "context"

// Repository stores teleport users discovered on chain.
type Repository interface {
	// UpsertTeleport inserts the user or refreshes the existing record.
	UpsertTeleport(ctx context.Context, t *Teleport) error
	ListTeleportUsernames(ctx context.Context) ([]string, error)
}
