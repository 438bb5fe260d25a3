// internal/app/ports.go
package app

import (
	"context"
	"math/big"
	"time"

	"pacer_agent/internal/domain/behavior"
	"pacer_agent/internal/domain/notification"

	"github.com/ethereum/go-ethereum/common"
)

// Completer produces a text completion for a system and a user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NotificationSource hands out inbound events collected since the last call.
type NotificationSource interface {
	RetrieveBatch(ctx context.Context) ([]notification.Item, error)
}

// WalletOperator is the subset of the agent wallet the app layer drives.
type WalletOperator interface {
	Address() common.Address
	Balance(ctx context.Context) (*big.Int, error)
	Transfer(ctx context.Context, to common.Address, wei *big.Int) (common.Hash, error)
}

// RunStatus is a point-in-time view of the run loop.
type RunStatus struct {
	State           behavior.State
	Phase           behavior.Phase
	LastProbability float64
	Paused          bool
	Watermark       uint64
	WatermarkKnown  bool
	QueueLen        int
	WindowStart     time.Time
	WindowEnd       time.Time
	LastTick        time.Time
	PipelineRuns    int
	PipelineErrors  int
}

// RunController is the operator-facing side of the run loop.
type RunController interface {
	Pause() bool
	Resume() bool
	Status() RunStatus
}
