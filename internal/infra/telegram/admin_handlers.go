// internal/infra/telegram/admin_handlers.go
package telegram

import (
	"errors"
	"fmt"
	"strings"

	"pacer_agent/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	msgNotAuthorized  = "Error: you are not allowed to run this command."
	queuePreviewLimit = 10
	queuePreviewRunes = 120
)

type operatorHandlers struct {
	svc    *app.OperatorService
	logger *logrus.Entry
}

// RegisterAdminHandlers registers the operator-only commands.
func RegisterAdminHandlers(b *telebot.Bot, svc *app.OperatorService, baseLogger *logrus.Entry) {
	h := &operatorHandlers{svc: svc, logger: baseLogger}
	b.Handle("/status", h.status)
	b.Handle("/pause", h.pause)
	b.Handle("/resume", h.resume)
	b.Handle("/queue", h.queue)
}

func (h *operatorHandlers) handlerLogger(c telebot.Context, command string) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"handler":   command,
		"sender_id": c.Sender().ID,
	})
}

func (h *operatorHandlers) status(c telebot.Context) error {
	log := h.handlerLogger(c, "/status")
	st, err := h.svc.Status(c.Sender().ID)
	if err != nil {
		return h.replyError(c, log, err)
	}
	log.Info("Status sent")
	return c.Send(app.FormatStatus(st))
}

func (h *operatorHandlers) pause(c telebot.Context) error {
	log := h.handlerLogger(c, "/pause")
	if err := h.svc.Pause(c.Sender().ID); err != nil {
		return h.replyError(c, log, err)
	}
	log.Info("Agent paused by operator")
	return c.Send("Paused. I will keep reading the chain but will not act until /resume.")
}

func (h *operatorHandlers) resume(c telebot.Context) error {
	log := h.handlerLogger(c, "/resume")
	if err := h.svc.Resume(c.Sender().ID); err != nil {
		return h.replyError(c, log, err)
	}
	log.Info("Agent resumed by operator")
	return c.Send("Resumed.")
}

func (h *operatorHandlers) queue(c telebot.Context) error {
	log := h.handlerLogger(c, "/queue")
	items, err := h.svc.QueuedNotifications(c.Sender().ID)
	if err != nil {
		return h.replyError(c, log, err)
	}
	if len(items) == 0 {
		return c.Send("The notification queue is empty.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d queued notifications:\n", len(items))
	for i, it := range items {
		if i == queuePreviewLimit {
			fmt.Fprintf(&b, "... and %d more", len(items)-queuePreviewLimit)
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncate(it.Content, queuePreviewRunes))
	}
	return c.Send(strings.TrimRight(b.String(), "\n"))
}

func (h *operatorHandlers) replyError(c telebot.Context, log *logrus.Entry, err error) error {
	log = log.WithError(err)
	switch {
	case errors.Is(err, app.ErrNotAuthorized):
		log.Warn("Unauthorized access attempt")
		return c.Send(msgNotAuthorized)
	case errors.Is(err, app.ErrAlreadyPaused):
		return c.Send("Already paused.")
	case errors.Is(err, app.ErrNotPaused):
		return c.Send("Not paused.")
	default:
		log.Error("Command failed")
		return c.Send(fmt.Sprintf("Command failed: %s", err.Error()))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
