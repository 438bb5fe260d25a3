package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pacer_agent/internal/app"
	"pacer_agent/internal/domain/behavior"

	"github.com/sirupsen/logrus"
)

const stateSaveTimeout = 5 * time.Second

// Pipeline is the downstream action run when the machine decides to act.
type Pipeline interface {
	Run(ctx context.Context) error
}

// ChainPoller ingests chain events from a block watermark onward.
type ChainPoller interface {
	LatestBlock(ctx context.Context) (uint64, error)
	PollEvents(ctx context.Context, from uint64) (uint64, error)
}

// StateSaver persists behavior state snapshots.
type StateSaver interface {
	Save(ctx context.Context, state behavior.State) error
}

type queueGauge interface {
	Len() int
}

// RunnerConfig holds the loop cadences and per-call timeouts.
type RunnerConfig struct {
	OuterPollInterval time.Duration
	TickInterval      time.Duration
	ActionTimeout     time.Duration
	ChainPollTimeout  time.Duration
}

// Runner is the agent's single control loop. It plans activity windows with
// the behavior machine, waits for them to open, and inside a window ticks:
// each tick may run the action pipeline and always polls chain events.
//
// Only the loop goroutine touches the machine. Pause, Resume and Status are
// safe to call from other goroutines.
type Runner struct {
	machine  *behavior.Machine
	clock    behavior.Clock
	pipeline Pipeline
	poller   ChainPoller // nil disables chain polling
	store    StateSaver  // nil disables snapshots
	queue    queueGauge
	cfg      RunnerConfig
	logger   *logrus.Entry
	sleep    func(ctx context.Context, d time.Duration) error

	watermark      uint64
	watermarkKnown bool

	paused atomic.Bool
	mu     sync.Mutex
	status app.RunStatus
}

func NewRunner(
	machine *behavior.Machine,
	clock behavior.Clock,
	pipeline Pipeline,
	poller ChainPoller,
	store StateSaver,
	queue queueGauge,
	cfg RunnerConfig,
	logger *logrus.Entry,
) *Runner {
	return &Runner{
		machine:  machine,
		clock:    clock,
		pipeline: pipeline,
		poller:   poller,
		store:    store,
		queue:    queue,
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Run performs one pipeline pass, then runs activity cycles until ctx is done.
// It returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Run loop starting")
	r.runPipeline(ctx)
	r.publish()

	for {
		if err := r.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				r.logger.Info("Run loop stopped")
				return ctx.Err()
			}
			r.logger.WithError(err).Error("Cycle failed")
		}
	}
}

// RunCycle plans one activity window, waits for it to open and ticks until it closes.
func (r *Runner) RunCycle(ctx context.Context) error {
	activation, duration := r.machine.WindowParameters()
	end := activation.Add(duration)
	r.mu.Lock()
	r.status.WindowStart = activation
	r.status.WindowEnd = end
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"activation": activation.Format(time.RFC3339),
		"duration":   duration.Round(time.Second).String(),
		"phase":      r.machine.Phase(),
	}).Info("Next activity window planned")

	for now := r.clock.Now(); now.Before(activation); now = r.clock.Now() {
		wait := min(r.cfg.OuterPollInterval, activation.Sub(now))
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}

	nextRun := r.clock.Now().Add(r.machine.NextCheckDelay())
	for r.clock.Now().Before(end) {
		nextRun = r.tick(ctx, nextRun)
		if err := r.sleep(ctx, r.cfg.TickInterval); err != nil {
			return err
		}
	}
	return nil
}

// tick runs one inner-phase step and returns the updated next decision time.
func (r *Runner) tick(ctx context.Context, nextRun time.Time) time.Time {
	now := r.clock.Now()
	if !r.paused.Load() && !now.Before(nextRun) {
		acted := r.machine.Decide()
		log := r.logger.WithFields(logrus.Fields{
			"probability":  fmt.Sprintf("%.3f", r.machine.LastProbability()),
			"daily_count":  r.machine.State().DailyActionCount,
			"daily_target": r.machine.State().DailyTarget,
			"phase":        r.machine.Phase(),
		})
		r.saveState(ctx)
		if acted {
			log.Info("Acting")
			r.runPipeline(ctx)
		} else {
			log.Debug("Skipping")
		}
		nextRun = r.clock.Now().Add(r.machine.NextCheckDelay())
	}

	r.pollChain(ctx)
	r.publish()
	return nextRun
}

// runPipeline runs the action and absorbs its failure. Counters already
// recorded by the machine are not rolled back.
func (r *Runner) runPipeline(ctx context.Context) {
	actx, cancel := context.WithTimeout(ctx, r.cfg.ActionTimeout)
	defer cancel()

	err := r.callPipeline(actx)

	r.mu.Lock()
	r.status.PipelineRuns++
	if err != nil {
		r.status.PipelineErrors++
	}
	r.mu.Unlock()

	if err == nil {
		return
	}
	log := r.logger.WithError(err)
	var pe *app.PipelineError
	if errors.As(err, &pe) {
		log = log.WithField("stage", pe.Stage)
	}
	log.Error("Action pipeline failed")
}

func (r *Runner) callPipeline(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pipeline panicked: %v", p)
		}
	}()
	return r.pipeline.Run(ctx)
}

// pollChain advances the watermark on success and keeps it on failure.
func (r *Runner) pollChain(ctx context.Context) {
	if r.poller == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, r.cfg.ChainPollTimeout)
	defer cancel()

	if !r.watermarkKnown {
		head, err := r.poller.LatestBlock(pctx)
		if err != nil {
			r.logger.WithError(err).Warn("Failed to read chain head, will retry")
			return
		}
		r.watermark = head
		r.watermarkKnown = true
		r.logger.WithField("block", head).Info("Chain watermark initialised")
	}

	next, err := r.poller.PollEvents(pctx, r.watermark)
	if err != nil {
		r.logger.WithError(err).WithField("from", r.watermark).Warn("Chain poll failed, keeping watermark")
		return
	}
	if next > r.watermark {
		r.watermark = next
	}
}

func (r *Runner) saveState(ctx context.Context) {
	if r.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, stateSaveTimeout)
	defer cancel()
	if err := r.store.Save(sctx, r.machine.State()); err != nil {
		r.logger.WithError(err).Warn("Failed to save behavior state")
	}
}

// publish refreshes the status snapshot from loop-owned state.
func (r *Runner) publish() {
	st := r.machine.State()
	phase := r.machine.Phase()
	prob := r.machine.LastProbability()
	queued := 0
	if r.queue != nil {
		queued = r.queue.Len()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.State = st
	r.status.Phase = phase
	r.status.LastProbability = prob
	r.status.QueueLen = queued
	r.status.Watermark = r.watermark
	r.status.WatermarkKnown = r.watermarkKnown
	r.status.LastTick = r.clock.Now()
}

// Pause stops action decisions. It reports false if already paused.
func (r *Runner) Pause() bool {
	return r.paused.CompareAndSwap(false, true)
}

// Resume re-enables action decisions. It reports false if not paused.
func (r *Runner) Resume() bool {
	return r.paused.CompareAndSwap(true, false)
}

// Status returns the latest published snapshot.
func (r *Runner) Status() app.RunStatus {
	r.mu.Lock()
	st := r.status
	r.mu.Unlock()
	st.Paused = r.paused.Load()
	return st
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
