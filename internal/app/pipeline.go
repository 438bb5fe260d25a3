// internal/app/pipeline.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"pacer_agent/internal/domain/notification"
	domainTelegram "pacer_agent/internal/domain/telegram"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const recentPostsLimit = 10

// Writer drafts post text.
type Writer interface {
	Write(ctx context.Context, recent []*notification.Post, notifications []string) (string, error)
}

// Scorer rates drafted post text from 1 to 10.
type Scorer interface {
	Score(ctx context.Context, content string) (int, error)
}

// TransferStep reacts to wallet addresses found in notifications.
type TransferStep interface {
	HandleNotifications(ctx context.Context, notifications []string) (int, error)
}

// PostingPipeline is one full action: collect inbound notifications, draft a
// post reacting to them, and publish it if it scores well enough.
type PostingPipeline struct {
	posts           notification.PostRepository
	processed       notification.ProcessedRepository
	source          NotificationSource
	queue           *notification.Queue
	writer          Writer
	scorer          Scorer
	transfers       TransferStep // nil disables the wallet step
	telegramClient  domainTelegram.Client
	channelID       int64
	minSignificance int
	logger          *logrus.Entry
}

func NewPostingPipeline(
	posts notification.PostRepository,
	processed notification.ProcessedRepository,
	source NotificationSource,
	queue *notification.Queue,
	writer Writer,
	scorer Scorer,
	transfers TransferStep,
	tc domainTelegram.Client,
	channelID int64,
	minSignificance int,
	logger *logrus.Entry,
) *PostingPipeline {
	return &PostingPipeline{
		posts:           posts,
		processed:       processed,
		source:          source,
		queue:           queue,
		writer:          writer,
		scorer:          scorer,
		transfers:       transfers,
		telegramClient:  tc,
		channelID:       channelID,
		minSignificance: minSignificance,
		logger:          logger,
	}
}

// Run executes the pipeline once. A failing stage is reported as *PipelineError
// and leaves the queue intact, so the next run reacts to the same batch.
func (p *PostingPipeline) Run(ctx context.Context) error {
	log := p.logger.WithField("run_id", uuid.NewString())

	recent, err := p.posts.ListRecent(ctx, recentPostsLimit)
	if err != nil {
		return stageError(StageRetrieve, fmt.Errorf("failed to load recent posts: %w", err))
	}

	batch, err := p.source.RetrieveBatch(ctx)
	if err != nil {
		return stageError(StageRetrieve, err)
	}
	fresh, err := p.dropProcessed(ctx, batch)
	if err != nil {
		// The source is drained already; keep the batch so the next run sees it.
		p.queue.Add(batch)
		return stageError(StageQueue, err)
	}

	p.queue.Add(fresh)
	if !p.queue.IsReady() {
		log.WithField("queue_len", p.queue.Len()).Debug("Not enough notifications to act on")
		return nil
	}

	items := p.queue.Drain()
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ExternalID)
	}
	if err := p.processed.MarkProcessed(ctx, ids); err != nil {
		return stageError(StageQueue, fmt.Errorf("failed to mark notifications processed: %w", err))
	}

	notifications := notification.Contents(items)
	log = log.WithField("notifications", len(notifications))

	if p.transfers != nil {
		sent, err := p.transfers.HandleNotifications(ctx, notifications)
		if err != nil {
			log.WithError(err).Warn("Wallet step failed")
		} else if sent > 0 {
			log.WithField("transfers", sent).Info("Wallet step sent transfers")
		}
	}

	content, err := p.writer.Write(ctx, recent, notifications)
	if err != nil {
		return stageError(StageGenerate, err)
	}
	score, err := p.scorer.Score(ctx, content)
	if err != nil {
		return stageError(StageScore, err)
	}
	log = log.WithField("significance", score)

	if score < p.minSignificance {
		log.WithField("min_significance", p.minSignificance).Info("Post not significant enough, dropping it")
		p.queue.Clear()
		return nil
	}

	msg, err := p.telegramClient.SendMessage(p.channelID, content, nil)
	if err != nil {
		return stageError(StagePost, err)
	}
	post := &notification.Post{Content: content, SignificanceScore: score}
	if msg != nil {
		post.ExternalID = sql.NullString{String: strconv.Itoa(msg.ID), Valid: true}
	}
	// Clear before storing: the post is already public, retrying would duplicate it.
	p.queue.Clear()
	if err := p.posts.Create(ctx, post); err != nil {
		return stageError(StageStore, err)
	}

	log.WithField("post_id", post.ID).Info("Post published")
	return nil
}

func (p *PostingPipeline) dropProcessed(ctx context.Context, batch []notification.Item) ([]notification.Item, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(batch))
	for _, it := range batch {
		ids = append(ids, it.ExternalID)
	}
	fresh, err := p.processed.FilterUnprocessed(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to filter processed notifications: %w", err)
	}
	keep := make(map[string]bool, len(fresh))
	for _, id := range fresh {
		keep[id] = true
	}
	out := make([]notification.Item, 0, len(fresh))
	for _, it := range batch {
		if keep[it.ExternalID] {
			out = append(out, it)
		}
	}
	return out, nil
}
