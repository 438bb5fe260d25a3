// internal/app/maintenance_service.go
package app

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	domainTelegram "pacer_agent/internal/domain/telegram"
	"pacer_agent/internal/infra/ethereum"

	"github.com/sirupsen/logrus"
)

// MaintenanceService holds the periodic housekeeping jobs.
type MaintenanceService struct {
	wallet         WalletOperator // nil when chain access is disabled
	control        RunController
	telegramClient domainTelegram.Client
	operatorID     int64
	minBalance     *big.Int
	logger         *logrus.Entry
}

func NewMaintenanceService(
	wallet WalletOperator,
	control RunController,
	tc domainTelegram.Client,
	operatorID int64,
	minBalanceEth float64,
	logger *logrus.Entry,
) *MaintenanceService {
	return &MaintenanceService{
		wallet:         wallet,
		control:        control,
		telegramClient: tc,
		operatorID:     operatorID,
		minBalance:     ethereum.EtherToWei(minBalanceEth),
		logger:         logger,
	}
}

// CheckBalance warns the operator when the wallet is at or below the floor.
func (s *MaintenanceService) CheckBalance(ctx context.Context) error {
	if s.wallet == nil {
		return nil
	}
	balance, err := s.wallet.Balance(ctx)
	if err != nil {
		return fmt.Errorf("failed to check wallet balance: %w", err)
	}
	eth := ethereum.WeiToEther(balance)
	s.logger.WithField("balance_eth", eth).Debug("Wallet balance checked")
	if balance.Cmp(s.minBalance) > 0 {
		return nil
	}
	text := fmt.Sprintf("Wallet %s is low: %.6f ETH (floor %.6f ETH). Transfers are suspended until it is topped up.",
		s.wallet.Address().Hex(), eth, ethereum.WeiToEther(s.minBalance))
	if _, err := s.telegramClient.SendMessage(s.operatorID, text, nil); err != nil {
		return fmt.Errorf("failed to send low balance warning: %w", err)
	}
	return nil
}

// ReportStatus sends the current run status to the operator.
func (s *MaintenanceService) ReportStatus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.telegramClient.SendMessage(s.operatorID, FormatStatus(s.control.Status()), nil); err != nil {
		return fmt.Errorf("failed to send status report: %w", err)
	}
	return nil
}

// FormatStatus renders a RunStatus for chat.
func FormatStatus(st RunStatus) string {
	var b strings.Builder
	state := "running"
	if st.Paused {
		state = "paused"
	}
	fmt.Fprintf(&b, "Agent is %s, phase %s\n", state, st.Phase)
	fmt.Fprintf(&b, "Actions today: %d of ~%d\n", st.State.DailyActionCount, st.State.DailyTarget)
	if st.State.BurstActive {
		fmt.Fprintf(&b, "Burst: %d/%d\n", st.State.BurstCount, st.State.BurstLimit)
	}
	fmt.Fprintf(&b, "Last probability: %.2f\n", st.LastProbability)
	if !st.State.LastActionTime.IsZero() {
		fmt.Fprintf(&b, "Last action: %s\n", st.State.LastActionTime.Format(time.DateTime))
	}
	if !st.WindowStart.IsZero() {
		fmt.Fprintf(&b, "Window: %s to %s\n", st.WindowStart.Format(time.TimeOnly), st.WindowEnd.Format(time.TimeOnly))
	}
	fmt.Fprintf(&b, "Queued notifications: %d\n", st.QueueLen)
	if st.WatermarkKnown {
		fmt.Fprintf(&b, "Chain watermark: %d\n", st.Watermark)
	}
	fmt.Fprintf(&b, "Pipeline runs: %d (%d failed)", st.PipelineRuns, st.PipelineErrors)
	return b.String()
}
