// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

type botCommands struct {
	operatorID int64
	logger     *logrus.Entry
}

// RegisterBotCommands registers /start and /help, available to everyone.
func RegisterBotCommands(b *telebot.Bot, operatorID int64, baseLogger *logrus.Entry) {
	h := &botCommands{operatorID: operatorID, logger: baseLogger.WithField("handler_group", "start_help")}
	b.Handle("/start", h.start)
	b.Handle("/help", h.help)
}

func (h *botCommands) start(c telebot.Context) error {
	senderID := c.Sender().ID
	h.logger.WithField("command", "/start").WithField("sender_id", senderID).Info("Processing /start command")

	if senderID == h.operatorID {
		return c.Send(fmt.Sprintf("Hi %s, I'm running. Use /help to see operator commands.", c.Sender().FirstName))
	}
	return c.Send("Hi! I post on my channel when I have something to say. Mention me or write here and I may react.")
}

func (h *botCommands) help(c telebot.Context) error {
	senderID := c.Sender().ID
	h.logger.WithField("command", "/help").WithField("sender_id", senderID).Info("Processing /help command")

	if senderID == h.operatorID {
		var helpText strings.Builder
		helpText.WriteString("Operator commands:\n\n")
		helpText.WriteString("`/status`\n - Pacing state, activity window and chain watermark.\n\n")
		helpText.WriteString("`/pause`\n - Stop acting. Chain events are still ingested.\n\n")
		helpText.WriteString("`/resume`\n - Start acting again.\n\n")
		helpText.WriteString("`/queue`\n - Show the notifications the next post will react to.\n\n")
		helpText.WriteString("`/help`\n - Show this message.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	}
	return c.Send("Write to me here, reply to my messages or mention me in a group. I read everything, but I only answer when I feel like it.")
}
