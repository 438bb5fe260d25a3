package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"pacer_agent/internal/app"
	"pacer_agent/internal/domain/behavior"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// constRand always draws the bottom of every range and wins every coin flip.
type constRand struct{}

func (constRand) Float64() float64 { return 0 }
func (constRand) IntN(int) int     { return 0 }

// callLog records the order of collaborator calls across fakes.
type callLog []string

func (l *callLog) record(name string) {
	if l != nil {
		*l = append(*l, name)
	}
}

type fakePipeline struct {
	clock *fakeClock
	calls []time.Time
	run   func(call int) error
	log   *callLog
}

func (p *fakePipeline) Run(context.Context) error {
	p.log.record("pipeline")
	p.calls = append(p.calls, p.clock.now)
	if p.run != nil {
		return p.run(len(p.calls))
	}
	return nil
}

type pollResult struct {
	next uint64
	err  error
}

type fakePoller struct {
	head     uint64
	headErrs []error
	results  []pollResult // consumed in order; afterwards from+1
	heads    int
	froms    []uint64
	log      *callLog
}

func (p *fakePoller) LatestBlock(context.Context) (uint64, error) {
	p.heads++
	if len(p.headErrs) > 0 {
		err := p.headErrs[0]
		p.headErrs = p.headErrs[1:]
		return 0, err
	}
	return p.head, nil
}

func (p *fakePoller) PollEvents(_ context.Context, from uint64) (uint64, error) {
	p.log.record("poll")
	p.froms = append(p.froms, from)
	if len(p.results) > 0 {
		r := p.results[0]
		p.results = p.results[1:]
		return r.next, r.err
	}
	return from + 1, nil
}

type fakeSaver struct {
	saved []behavior.State
	log   *callLog
}

func (s *fakeSaver) Save(_ context.Context, st behavior.State) error {
	s.log.record("save")
	s.saved = append(s.saved, st)
	return nil
}

type runnerFixture struct {
	clock    *fakeClock
	pipeline *fakePipeline
	poller   *fakePoller
	saver    *fakeSaver
	sleeps   []time.Duration
	runner   *Runner
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newRunnerFixture(start time.Time, outer time.Duration) *runnerFixture {
	f := &runnerFixture{clock: &fakeClock{now: start}}
	f.pipeline = &fakePipeline{clock: f.clock}
	f.poller = &fakePoller{head: 100}
	f.saver = &fakeSaver{}
	machine := behavior.NewMachine(behavior.DefaultProfiles(), f.clock, constRand{})
	f.runner = NewRunner(machine, f.clock, f.pipeline, f.poller, f.saver, nil, RunnerConfig{
		OuterPollInterval: outer,
		TickInterval:      5 * time.Second,
		ActionTimeout:     time.Minute,
		ChainPollTimeout:  time.Second,
	}, quietLogger())
	f.runner.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.sleeps = append(f.sleeps, d)
		f.clock.now = f.clock.now.Add(d)
		return nil
	}
	return f
}

func at(hour, minute, second int) time.Time {
	return time.Date(2026, time.October, 19, hour, minute, second, 0, time.UTC)
}

func TestRunCycleActsInsideWindow(t *testing.T) {
	f := newRunnerFixture(at(10, 0, 0), time.Minute)

	require.NoError(t, f.runner.RunCycle(context.Background()))

	// Window opens at 10:03 for 8 minutes; a burst starts at the first decision.
	assert.Equal(t, []time.Duration{time.Minute, time.Minute, time.Minute}, f.sleeps[:3])
	assert.Equal(t, []time.Time{at(10, 4, 0), at(10, 6, 0), at(10, 8, 0), at(10, 10, 30)}, f.pipeline.calls)
	for i := 1; i < len(f.pipeline.calls); i++ {
		assert.GreaterOrEqual(t, f.pipeline.calls[i].Sub(f.pipeline.calls[i-1]), 2*time.Minute)
	}
	assert.Len(t, f.saver.saved, 12)
	assert.Equal(t, at(10, 11, 0), f.clock.now)

	st := f.runner.Status()
	assert.Equal(t, 4, st.State.DailyActionCount)
	assert.Equal(t, at(10, 3, 0), st.WindowStart)
	assert.Equal(t, at(10, 11, 0), st.WindowEnd)
	assert.Equal(t, 4, st.PipelineRuns)
}

func TestTickActsBeforePollingChain(t *testing.T) {
	f := newRunnerFixture(at(10, 0, 0), time.Minute)
	var calls callLog
	f.pipeline.log = &calls
	f.poller.log = &calls
	f.saver.log = &calls

	next := f.runner.tick(context.Background(), f.clock.Now())

	assert.Equal(t, callLog{"save", "pipeline", "poll"}, calls)
	assert.True(t, next.After(f.clock.Now()))

	calls = nil
	f.runner.tick(context.Background(), next)
	assert.Equal(t, callLog{"poll"}, calls, "no decision is due before nextRun")
}

func TestRunCyclePollsChainEveryTick(t *testing.T) {
	f := newRunnerFixture(at(10, 0, 0), time.Minute)

	require.NoError(t, f.runner.RunCycle(context.Background()))

	assert.Equal(t, 1, f.poller.heads)
	require.Len(t, f.poller.froms, 96)
	assert.Equal(t, uint64(100), f.poller.froms[0])
	assert.Equal(t, uint64(195), f.poller.froms[95])
	st := f.runner.Status()
	assert.True(t, st.WatermarkKnown)
	assert.Equal(t, uint64(196), st.Watermark)
}

func TestRunCycleCapsOuterWait(t *testing.T) {
	// Off hours: the window opens 10 minutes out.
	f := newRunnerFixture(at(3, 0, 0), 4*time.Minute)

	require.NoError(t, f.runner.RunCycle(context.Background()))

	assert.Equal(t, []time.Duration{4 * time.Minute, 4 * time.Minute, 2 * time.Minute, 5 * time.Second}, f.sleeps[:4])
}

func TestPausedRunnerSkipsDecisionsButPolls(t *testing.T) {
	f := newRunnerFixture(at(3, 0, 0), time.Minute)
	require.True(t, f.runner.Pause())
	require.False(t, f.runner.Pause())

	require.NoError(t, f.runner.RunCycle(context.Background()))

	assert.Empty(t, f.pipeline.calls)
	assert.Empty(t, f.saver.saved)
	assert.Len(t, f.poller.froms, 60)
	st := f.runner.Status()
	assert.True(t, st.Paused)
	assert.Zero(t, st.State.DailyActionCount)
	assert.False(t, st.State.BurstActive)

	require.True(t, f.runner.Resume())
	require.False(t, f.runner.Resume())
	assert.False(t, f.runner.Status().Paused)
}

func TestPipelineFailuresDoNotStopCycle(t *testing.T) {
	f := newRunnerFixture(at(10, 0, 0), time.Minute)
	f.pipeline.run = func(call int) error {
		if call == 2 {
			panic("nil map")
		}
		return &app.PipelineError{Stage: app.StagePost, Err: errors.New("flood wait")}
	}

	require.NoError(t, f.runner.RunCycle(context.Background()))

	assert.Len(t, f.pipeline.calls, 4)
	st := f.runner.Status()
	assert.Equal(t, 4, st.PipelineRuns)
	assert.Equal(t, 4, st.PipelineErrors)
	// Failed actions still count toward the daily pace.
	assert.Equal(t, 4, st.State.DailyActionCount)
}

func TestPollChainKeepsWatermarkOnFailure(t *testing.T) {
	f := newRunnerFixture(at(10, 0, 0), time.Minute)
	f.poller.results = []pollResult{
		{next: 110},
		{next: 110, err: errors.New("rpc timeout")},
		{next: 115},
		{next: 90},
	}
	ctx := context.Background()

	var marks []uint64
	for i := 0; i < 4; i++ {
		f.runner.pollChain(ctx)
		marks = append(marks, f.runner.watermark)
	}

	assert.Equal(t, []uint64{100, 110, 110, 115}, f.poller.froms)
	assert.Equal(t, []uint64{110, 110, 115, 115}, marks)
}

func TestPollChainRetriesChainHead(t *testing.T) {
	f := newRunnerFixture(at(10, 0, 0), time.Minute)
	f.poller.headErrs = []error{errors.New("dial tcp: refused")}
	ctx := context.Background()

	f.runner.pollChain(ctx)
	assert.False(t, f.runner.watermarkKnown)
	assert.Empty(t, f.poller.froms)

	f.runner.pollChain(ctx)
	assert.True(t, f.runner.watermarkKnown)
	assert.Equal(t, []uint64{100}, f.poller.froms)
	assert.Equal(t, 2, f.poller.heads)
}

func TestRunnerWithoutPoller(t *testing.T) {
	f := newRunnerFixture(at(3, 0, 0), time.Minute)
	f.runner.poller = nil

	require.NoError(t, f.runner.RunCycle(context.Background()))
	assert.False(t, f.runner.Status().WatermarkKnown)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newRunnerFixture(at(10, 0, 0), time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	f.pipeline.run = func(int) error {
		cancel()
		return nil
	}

	err := f.runner.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.pipeline.calls, 1)
	assert.Empty(t, f.sleeps)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, sleepContext(ctx, 0), context.Canceled)
}
