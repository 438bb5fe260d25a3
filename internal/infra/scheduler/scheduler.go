package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const maintenanceJobTimeout = time.Minute

// MaintenanceJobs are the housekeeping tasks run on a fixed schedule.
type MaintenanceJobs interface {
	CheckBalance(ctx context.Context) error
	ReportStatus(ctx context.Context) error
}

// MaintenanceScheduler runs housekeeping jobs with cron, next to the main loop.
type MaintenanceScheduler struct {
	cronEngine      *cron.Cron
	jobs            MaintenanceJobs
	logger          *logrus.Entry
	cronSpecBalance string
	cronSpecStatus  string
	balanceCheckOn  bool
}

func NewMaintenanceScheduler(
	jobs MaintenanceJobs,
	logger *logrus.Entry,
	cronSpecBalance string, // e.g. "*/30 * * * *"
	cronSpecStatus string, // e.g. "0 * * * *"
	balanceCheckOn bool,
) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cronEngine:      cron.New(cron.WithLocation(time.Local)),
		jobs:            jobs,
		logger:          logger,
		cronSpecBalance: cronSpecBalance,
		cronSpecStatus:  cronSpecStatus,
		balanceCheckOn:  balanceCheckOn,
	}
}

// Start registers the jobs and starts the cron engine. It fails on an invalid spec.
func (s *MaintenanceScheduler) Start() error {
	if s.balanceCheckOn {
		if _, err := s.cronEngine.AddFunc(s.cronSpecBalance, func() {
			s.runJob("balance_check", s.jobs.CheckBalance)
		}); err != nil {
			return fmt.Errorf("could not add balance check job: %w", err)
		}
	}
	if _, err := s.cronEngine.AddFunc(s.cronSpecStatus, func() {
		s.runJob("status_report", s.jobs.ReportStatus)
	}); err != nil {
		return fmt.Errorf("could not add status report job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithField("jobs", len(s.cronEngine.Entries())).Info("Maintenance scheduler started")
	return nil
}

func (s *MaintenanceScheduler) runJob(name string, job func(ctx context.Context) error) {
	log := s.logger.WithField("job", name)
	log.Debug("Cron job triggered")
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceJobTimeout)
	defer cancel()
	if err := job(ctx); err != nil {
		log.WithError(err).Error("Cron job failed")
	}
}

// Stop stops the engine and waits for running jobs.
func (s *MaintenanceScheduler) Stop() {
	s.logger.Info("Stopping maintenance scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Maintenance scheduler stopped")
}
