// internal/app/wallet_service.go
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"pacer_agent/internal/domain/chain"
	"pacer_agent/internal/infra/ethereum"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

const walletDecisionAttempts = 2

var (
	addressPattern = regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`)
	mentionPattern = regexp.MustCompile(`@(\w+)`)
	jsonArray      = regexp.MustCompile(`(?s)\[.*\]`)
)

const walletSystemPrompt = "You manage a small wallet of real ETH that funds your own survival. " +
	"Decide whether to send ETH to any of the listed addresses. " +
	"Respond ONLY with a JSON array of objects {\"address\": string, \"amount\": number} in ETH, " +
	"or [] to send nothing."

// TransferDecision is one transfer the model chose to make.
type TransferDecision struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
}

// WalletService lets the agent send small amounts of ETH to addresses people
// post at it. Transfers are capped per send and never take the balance below
// the configured floor.
type WalletService struct {
	wallet     WalletOperator
	teleports  chain.Repository
	llm        Completer
	minBalance *big.Int
	maxSend    *big.Int
	logger     *logrus.Entry
}

func NewWalletService(
	wallet WalletOperator,
	teleports chain.Repository,
	llm Completer,
	minBalanceEth float64,
	maxTransferEth float64,
	logger *logrus.Entry,
) *WalletService {
	return &WalletService{
		wallet:     wallet,
		teleports:  teleports,
		llm:        llm,
		minBalance: ethereum.EtherToWei(minBalanceEth),
		maxSend:    ethereum.EtherToWei(maxTransferEth),
		logger:     logger,
	}
}

// HandleNotifications looks for wallet addresses in the notifications and
// sends whatever transfers the model approves. It returns the number of
// transfers that were mined successfully.
func (s *WalletService) HandleNotifications(ctx context.Context, notifications []string) (int, error) {
	addresses := findAddresses(notifications)
	if len(addresses) == 0 {
		return 0, nil
	}

	balance, err := s.wallet.Balance(ctx)
	if err != nil {
		return 0, err
	}
	if balance.Cmp(s.minBalance) <= 0 {
		s.logger.WithField("balance_eth", ethereum.WeiToEther(balance)).Info("Balance at or below floor, skipping transfers")
		return 0, nil
	}

	preferred := s.preferredUsers(ctx, notifications)
	decisions, err := s.decide(ctx, notifications, addresses, preferred, balance)
	if err != nil {
		return 0, err
	}

	allowed := make(map[common.Address]bool, len(addresses))
	for _, a := range addresses {
		allowed[a] = true
	}

	sent := 0
	remaining := new(big.Int).Set(balance)
	for _, d := range decisions {
		log := s.logger.WithFields(logrus.Fields{"to": d.Address, "amount_eth": d.Amount})
		if !common.IsHexAddress(d.Address) || !allowed[common.HexToAddress(d.Address)] {
			log.Warn("Model chose an address nobody posted, ignoring")
			continue
		}
		if d.Amount <= 0 {
			continue
		}
		amount := ethereum.EtherToWei(d.Amount)
		if amount.Cmp(s.maxSend) > 0 {
			amount.Set(s.maxSend)
		}
		after := new(big.Int).Sub(remaining, amount)
		if after.Cmp(s.minBalance) < 0 {
			log.WithError(ethereum.ErrInsufficientBalance).Warn("Transfer refused")
			continue
		}

		hash, err := s.wallet.Transfer(ctx, common.HexToAddress(d.Address), amount)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return sent, err
			}
			log.WithError(err).WithField("tx", hash.Hex()).Error("Transfer failed")
			continue
		}
		remaining = after
		sent++
		log.WithFields(logrus.Fields{
			"tx":       hash.Hex(),
			"sent_eth": ethereum.WeiToEther(amount),
		}).Info("Transfer mined")
	}
	return sent, nil
}

func (s *WalletService) decide(
	ctx context.Context,
	notifications []string,
	addresses []common.Address,
	preferred []string,
	balance *big.Int,
) ([]TransferDecision, error) {
	var b strings.Builder
	b.WriteString("Recent messages:\n")
	for _, n := range notifications {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	b.WriteString("\nAddresses found in them:\n")
	for _, a := range addresses {
		fmt.Fprintf(&b, "- %s\n", a.Hex())
	}
	if len(preferred) > 0 {
		fmt.Fprintf(&b, "\nPreferred users (they minted you a policy on chain): %s\n", strings.Join(preferred, ", "))
	}
	fmt.Fprintf(&b, "\nCurrent balance: %.6f ETH. Largest single transfer: %.6f ETH.\n",
		ethereum.WeiToEther(balance), ethereum.WeiToEther(s.maxSend))

	var lastErr error
	for attempt := 0; attempt < walletDecisionAttempts; attempt++ {
		reply, err := s.llm.Complete(ctx, walletSystemPrompt, b.String())
		if err != nil {
			lastErr = err
			continue
		}
		decisions, err := parseDecisions(reply)
		if err != nil {
			lastErr = err
			continue
		}
		return decisions, nil
	}
	return nil, fmt.Errorf("failed to get a transfer decision: %w", lastErr)
}

// preferredUsers returns the mentioned usernames that are known teleport users.
func (s *WalletService) preferredUsers(ctx context.Context, notifications []string) []string {
	if s.teleports == nil {
		return nil
	}
	known, err := s.teleports.ListTeleportUsernames(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to list teleport users")
		return nil
	}
	set := make(map[string]bool, len(known))
	for _, u := range known {
		set[strings.ToLower(u)] = true
	}
	var out []string
	seen := map[string]bool{}
	for _, n := range notifications {
		for _, m := range mentionPattern.FindAllStringSubmatch(n, -1) {
			name := strings.ToLower(m[1])
			if set[name] && !seen[name] {
				seen[name] = true
				out = append(out, m[1])
			}
		}
	}
	return out
}

func findAddresses(notifications []string) []common.Address {
	var out []common.Address
	seen := map[common.Address]bool{}
	for _, n := range notifications {
		for _, m := range addressPattern.FindAllString(n, -1) {
			a := common.HexToAddress(m)
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

// parseDecisions accepts a bare JSON array, possibly wrapped in prose or a code fence.
func parseDecisions(reply string) ([]TransferDecision, error) {
	raw := jsonArray.FindString(reply)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in reply %q", reply)
	}
	var decisions []TransferDecision
	if err := json.Unmarshal([]byte(raw), &decisions); err != nil {
		return nil, fmt.Errorf("failed to decode transfer decision: %w", err)
	}
	return decisions, nil
}
