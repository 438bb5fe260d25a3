package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"pacer_agent/internal/domain/chain"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

const newTokenDataEvent = "NewTokenData"

// teleportABI covers the single event the watcher decodes.
const teleportABI = `[{"anonymous":false,"inputs":[
{"indexed":true,"internalType":"uint256","name":"tokenId","type":"uint256"},
{"indexed":true,"internalType":"uint256","name":"x_id","type":"uint256"},
{"indexed":false,"internalType":"address","name":"to","type":"address"},
{"indexed":false,"internalType":"string","name":"policy","type":"string"},
{"indexed":false,"internalType":"string","name":"name","type":"string"},
{"indexed":false,"internalType":"string","name":"username","type":"string"},
{"indexed":false,"internalType":"string","name":"pfp","type":"string"}],
"name":"NewTokenData","type":"event"}]`

// logBackend is the subset of ethclient.Client the watcher reads from.
type logBackend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q gethcore.FilterQuery) ([]coretypes.Log, error)
}

// TeleportWatcher scans the teleport contract for NewTokenData events minted
// to the agent's wallet and records their users.
type TeleportWatcher struct {
	backend  logBackend
	contract common.Address
	agent    common.Address
	repo     chain.Repository
	abi      abi.ABI
	logger   *logrus.Entry
}

func NewTeleportWatcher(backend logBackend, contract, agent common.Address, repo chain.Repository, logger *logrus.Entry) (*TeleportWatcher, error) {
	parsed, err := abi.JSON(strings.NewReader(teleportABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse teleport ABI: %w", err)
	}
	return &TeleportWatcher{
		backend:  backend,
		contract: contract,
		agent:    agent,
		repo:     repo,
		abi:      parsed,
		logger:   logger,
	}, nil
}

// LatestBlock returns the current chain head.
func (w *TeleportWatcher) LatestBlock(ctx context.Context) (uint64, error) {
	head, err := w.backend.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read latest block: %w", err)
	}
	return head, nil
}

// PollEvents processes events in [from, head] and returns the next block to
// poll from. On failure it returns from unchanged with a *ChainPollError.
func (w *TeleportWatcher) PollEvents(ctx context.Context, from uint64) (uint64, error) {
	head, err := w.backend.BlockNumber(ctx)
	if err != nil {
		return from, &ChainPollError{From: from, Err: err}
	}
	if from >= head {
		return from, nil
	}

	event := w.abi.Events[newTokenDataEvent]
	logs, err := w.backend.FilterLogs(ctx, gethcore.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{w.contract},
		Topics:    [][]common.Hash{{event.ID}},
	})
	if err != nil {
		return from, &ChainPollError{From: from, Err: fmt.Errorf("filter logs: %w", err)}
	}

	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		t, err := w.decode(lg)
		if err != nil {
			w.logger.WithError(err).WithField("tx_hash", lg.TxHash.Hex()).Warn("Skipping undecodable teleport log")
			continue
		}
		if !strings.EqualFold(t.To, w.agent.Hex()) {
			continue
		}
		if err := w.repo.UpsertTeleport(ctx, t); err != nil {
			return from, &ChainPollError{From: from, Err: err}
		}
		w.logger.WithFields(logrus.Fields{
			"username": t.Username,
			"token_id": t.TokenID,
			"block":    t.BlockNumber,
		}).Info("Found teleport user")
	}
	return head + 1, nil
}

func (w *TeleportWatcher) decode(lg coretypes.Log) (*chain.Teleport, error) {
	if len(lg.Topics) < 3 {
		return nil, fmt.Errorf("expected 3 topics, got %d", len(lg.Topics))
	}
	fields := map[string]any{}
	if err := w.abi.UnpackIntoMap(fields, newTokenDataEvent, lg.Data); err != nil {
		return nil, fmt.Errorf("unpack event data: %w", err)
	}
	to, _ := fields["to"].(common.Address)
	policy, _ := fields["policy"].(string)
	name, _ := fields["name"].(string)
	username, _ := fields["username"].(string)

	return &chain.Teleport{
		TokenID:     new(big.Int).SetBytes(lg.Topics[1].Bytes()).String(),
		XID:         new(big.Int).SetBytes(lg.Topics[2].Bytes()).String(),
		To:          to.Hex(),
		Policy:      policy,
		Name:        name,
		Username:    username,
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash.Hex(),
		SeenAt:      time.Now(),
	}, nil
}
