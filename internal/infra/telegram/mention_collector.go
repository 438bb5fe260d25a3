// internal/infra/telegram/mention_collector.go
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pacer_agent/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const defaultMaxBuffered = 500

// MentionCollector buffers messages addressed to the bot until the pipeline
// retrieves them. A message counts as addressed when it is sent in a private
// chat, replies to the bot, or mentions the bot's username.
type MentionCollector struct {
	mu          sync.Mutex
	buf         []notification.Item
	maxBuffered int
	botID       int64
	botUsername string
	logger      *logrus.Entry
}

func NewMentionCollector(botID int64, botUsername string, logger *logrus.Entry) *MentionCollector {
	return &MentionCollector{
		maxBuffered: defaultMaxBuffered,
		botID:       botID,
		botUsername: strings.ToLower(strings.TrimPrefix(botUsername, "@")),
		logger:      logger,
	}
}

// Register routes inbound text messages to the collector.
func (mc *MentionCollector) Register(b *telebot.Bot) {
	b.Handle(telebot.OnText, func(c telebot.Context) error {
		mc.Collect(c.Message())
		return nil
	})
}

// Collect buffers m if it is addressed to the bot and reports whether it did.
// When the buffer is full the oldest message is dropped.
func (mc *MentionCollector) Collect(m *telebot.Message) bool {
	if m == nil || m.Chat == nil || strings.TrimSpace(m.Text) == "" {
		return false
	}
	if !mc.addressed(m) {
		return false
	}

	item := notification.Item{
		Content:    fmt.Sprintf("@%s: %s", senderName(m.Sender), strings.TrimSpace(m.Text)),
		ExternalID: fmt.Sprintf("%d:%d", m.Chat.ID, m.ID),
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if len(mc.buf) >= mc.maxBuffered {
		mc.buf = mc.buf[1:]
		mc.logger.Warn("Mention buffer full, dropping oldest message")
	}
	mc.buf = append(mc.buf, item)
	return true
}

// RetrieveBatch hands out everything collected since the previous call.
func (mc *MentionCollector) RetrieveBatch(ctx context.Context) ([]notification.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	out := mc.buf
	mc.buf = nil
	return out, nil
}

func (mc *MentionCollector) addressed(m *telebot.Message) bool {
	if m.Sender != nil && m.Sender.ID == mc.botID {
		return false
	}
	if m.Chat.Type == telebot.ChatPrivate {
		return true
	}
	if m.ReplyTo != nil && m.ReplyTo.Sender != nil && m.ReplyTo.Sender.ID == mc.botID {
		return true
	}
	return mc.botUsername != "" && strings.Contains(strings.ToLower(m.Text), "@"+mc.botUsername)
}

func senderName(u *telebot.User) string {
	switch {
	case u == nil:
		return "unknown"
	case u.Username != "":
		return u.Username
	case u.FirstName != "":
		return strings.ReplaceAll(u.FirstName, " ", "_")
	default:
		return fmt.Sprintf("user%d", u.ID)
	}
}
