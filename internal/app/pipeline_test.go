package app

import (
	"context"
	"errors"
	"testing"

	"pacer_agent/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedScorer struct {
	score int
	err   error
	seen  []string
}

func (s *fixedScorer) Score(_ context.Context, content string) (int, error) {
	s.seen = append(s.seen, content)
	return s.score, s.err
}

type fakeTransfers struct {
	calls [][]string
	sent  int
	err   error
}

func (f *fakeTransfers) HandleNotifications(_ context.Context, n []string) (int, error) {
	f.calls = append(f.calls, n)
	return f.sent, f.err
}

type pipelineFixture struct {
	posts     *fakePostRepo
	processed *fakeProcessedRepo
	source    *fakeSource
	queue     *notification.Queue
	llm       *scriptedCompleter
	scorer    *fixedScorer
	transfers *fakeTransfers
	tg        *fakeTelegram
	pipeline  *PostingPipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	q, err := notification.NewQueue(1, 100, 1000)
	require.NoError(t, err)
	f := &pipelineFixture{
		posts:     &fakePostRepo{recent: []*notification.Post{{Content: "yesterday's thought"}}},
		processed: newFakeProcessedRepo(),
		source:    &fakeSource{},
		queue:     q,
		llm:       &scriptedCompleter{script: []completion{{reply: "\"a fresh post\""}}},
		scorer:    &fixedScorer{score: 8},
		transfers: &fakeTransfers{},
		tg:        &fakeTelegram{},
	}
	f.pipeline = NewPostingPipeline(f.posts, f.processed, f.source, f.queue,
		NewPostWriter(f.llm), f.scorer, f.transfers, f.tg, -100500, 3, quietLogger())
	return f
}

func TestPipelinePublishesPost(t *testing.T) {
	f := newPipelineFixture(t)
	f.processed.done["1:1"] = true
	f.source.batches = [][]notification.Item{{
		{Content: "@bob: old news", ExternalID: "1:1"},
		{Content: "@alice: what do you think of rain?", ExternalID: "1:2"},
	}}

	require.NoError(t, f.pipeline.Run(context.Background()))

	assert.Equal(t, [][]string{{"1:2"}}, f.processed.marked)
	require.Len(t, f.transfers.calls, 1)
	assert.Equal(t, []string{"@alice: what do you think of rain?"}, f.transfers.calls[0])

	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], "yesterday's thought")
	assert.Contains(t, f.llm.prompts[0], "what do you think of rain?")
	assert.NotContains(t, f.llm.prompts[0], "old news")
	assert.Equal(t, []string{"a fresh post"}, f.scorer.seen)

	require.Len(t, f.tg.sent, 1)
	assert.Equal(t, int64(-100500), f.tg.sent[0].chatID)
	assert.Equal(t, "a fresh post", f.tg.sent[0].text)

	require.Len(t, f.posts.created, 1)
	stored := f.posts.created[0]
	assert.Equal(t, 8, stored.SignificanceScore)
	assert.True(t, stored.ExternalID.Valid)
	assert.Equal(t, "42", stored.ExternalID.String)
	assert.Zero(t, f.queue.Len())
}

func TestPipelineReturnsEarlyWhenQueueNotReady(t *testing.T) {
	f := newPipelineFixture(t)

	require.NoError(t, f.pipeline.Run(context.Background()))

	assert.Empty(t, f.llm.prompts)
	assert.Empty(t, f.tg.sent)
	assert.Empty(t, f.transfers.calls)
}

func TestPipelineDropsInsignificantPost(t *testing.T) {
	f := newPipelineFixture(t)
	f.scorer.score = 2
	f.source.batches = [][]notification.Item{{{Content: "hi", ExternalID: "1:3"}}}

	require.NoError(t, f.pipeline.Run(context.Background()))

	assert.Empty(t, f.tg.sent)
	assert.Empty(t, f.posts.created)
	assert.Zero(t, f.queue.Len())
}

func TestPipelineStageFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		setup     func(f *pipelineFixture)
		stage     Stage
		queueKept bool
		sentPosts int
	}{
		{"recent posts", func(f *pipelineFixture) { f.posts.listErr = boom }, StageRetrieve, false, 0},
		{"source", func(f *pipelineFixture) { f.source.err = boom }, StageRetrieve, false, 0},
		{"filter processed", func(f *pipelineFixture) { f.processed.filterErr = boom }, StageQueue, true, 0},
		{"mark processed", func(f *pipelineFixture) { f.processed.markErr = boom }, StageQueue, true, 0},
		{"generate", func(f *pipelineFixture) { f.llm.script = []completion{{err: boom}} }, StageGenerate, true, 0},
		{"score", func(f *pipelineFixture) { f.scorer.err = boom }, StageScore, true, 0},
		{"post", func(f *pipelineFixture) { f.tg.err = boom }, StagePost, true, 0},
		{"store", func(f *pipelineFixture) { f.posts.createErr = boom }, StageStore, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			f.source.batches = [][]notification.Item{{{Content: "hello there", ExternalID: "7:1"}}}
			tt.setup(f)

			err := f.pipeline.Run(context.Background())

			var pe *PipelineError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.stage, pe.Stage)
			assert.ErrorIs(t, err, boom)
			assert.Len(t, f.tg.sent, tt.sentPosts)
			if tt.queueKept {
				assert.Equal(t, 1, f.queue.Len())
			}
		})
	}
}

func TestPipelineWalletFailureDoesNotAbort(t *testing.T) {
	f := newPipelineFixture(t)
	f.transfers.err = errors.New("rpc down")
	f.source.batches = [][]notification.Item{{{Content: "send to 0xabc", ExternalID: "1:9"}}}

	require.NoError(t, f.pipeline.Run(context.Background()))
	assert.Len(t, f.tg.sent, 1)
}

func TestPipelineRetriesSameBatchAfterFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.source.batches = [][]notification.Item{{{Content: "first", ExternalID: "1:1"}}}
	f.tg.err = errors.New("flood wait")

	require.Error(t, f.pipeline.Run(context.Background()))

	f.tg.err = nil
	require.NoError(t, f.pipeline.Run(context.Background()))
	require.Len(t, f.llm.prompts, 2)
	assert.Contains(t, f.llm.prompts[1], "first")
	assert.Equal(t, [][]string{{"1:1"}, {"1:1"}}, f.processed.marked)
}

func TestPipelineKeepsBatchWhenFilterFails(t *testing.T) {
	f := newPipelineFixture(t)
	f.source.batches = [][]notification.Item{{{Content: "@carol: are you there?", ExternalID: "3:1"}}}
	f.processed.filterErr = errors.New("db timeout")

	require.Error(t, f.pipeline.Run(context.Background()))
	assert.Equal(t, 1, f.queue.Len())

	f.processed.filterErr = nil
	require.NoError(t, f.pipeline.Run(context.Background()))
	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], "are you there?")
	assert.Len(t, f.tg.sent, 1)
	assert.Equal(t, [][]string{{"3:1"}}, f.processed.marked)
}

func TestPipelineMarksEveryQueuedItem(t *testing.T) {
	f := newPipelineFixture(t)
	q, err := notification.NewQueue(2, 100, 1000)
	require.NoError(t, err)
	f.queue = q
	f.pipeline = NewPostingPipeline(f.posts, f.processed, f.source, f.queue,
		NewPostWriter(f.llm), f.scorer, f.transfers, f.tg, -100500, 3, quietLogger())
	f.source.batches = [][]notification.Item{
		{{Content: "first", ExternalID: "5:1"}},
		{{Content: "second", ExternalID: "5:2"}},
	}

	require.NoError(t, f.pipeline.Run(context.Background()))
	assert.Empty(t, f.processed.marked)

	require.NoError(t, f.pipeline.Run(context.Background()))
	assert.Equal(t, [][]string{{"5:1", "5:2"}}, f.processed.marked)
	assert.Len(t, f.tg.sent, 1)
}

func TestPipelineMarksItemsLeftByFailedMark(t *testing.T) {
	f := newPipelineFixture(t)
	f.source.batches = [][]notification.Item{{{Content: "hello", ExternalID: "6:1"}}}
	f.processed.markErr = errors.New("db down")

	require.Error(t, f.pipeline.Run(context.Background()))
	require.Empty(t, f.processed.marked)

	f.processed.markErr = nil
	require.NoError(t, f.pipeline.Run(context.Background()))
	assert.Equal(t, [][]string{{"6:1"}}, f.processed.marked)
}
