// internal/domain/chain/teleport.go
package chain

import "time"

// Teleport is a NewTokenData event addressed to the agent's wallet: a user
// minted a token that hands the agent a posting policy.
type Teleport struct {
	TokenID     string // decimal
	XID         string // decimal platform user ID
	To          string // hex address
	Policy      string
	Name        string
	Username    string
	BlockNumber uint64
	TxHash      string
	SeenAt      time.Time
}
