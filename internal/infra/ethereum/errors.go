package ethereum

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientBalance = errors.New("wallet balance would fall below the configured floor")
	ErrTransactionFailed   = errors.New("transaction reverted")
)

// ChainPollError reports a failed event poll. The watermark it carries is the
// one the caller should keep.
type ChainPollError struct {
	From uint64
	Err  error
}

func (e *ChainPollError) Error() string {
	return fmt.Sprintf("chain poll from block %d failed: %v", e.From, e.Err)
}

func (e *ChainPollError) Unwrap() error { return e.Err }
