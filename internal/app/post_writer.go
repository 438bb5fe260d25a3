// internal/app/post_writer.go
package app

import (
	"context"
	"fmt"
	"strings"

	"pacer_agent/internal/domain/notification"
)

const postWriterSystemPrompt = "You write short posts for a Telegram channel in your own voice. " +
	"Reply with the post text only: no quotes, no hashtags, no preamble. Keep it under 280 characters."

// PostWriter drafts the next outward post.
type PostWriter struct {
	llm Completer
}

func NewPostWriter(llm Completer) *PostWriter {
	return &PostWriter{llm: llm}
}

// Write drafts a post from the agent's recent posts and the notifications it is reacting to.
func (w *PostWriter) Write(ctx context.Context, recent []*notification.Post, notifications []string) (string, error) {
	var b strings.Builder
	b.WriteString("Your recent posts, newest first:\n")
	if len(recent) == 0 {
		b.WriteString("(none yet)\n")
	}
	for _, p := range recent {
		fmt.Fprintf(&b, "- %s\n", p.Content)
	}
	b.WriteString("\nMessages people sent you since then:\n")
	for _, n := range notifications {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	b.WriteString("\nWrite your next post. Do not repeat yourself.")

	out, err := w.llm.Complete(ctx, postWriterSystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("failed to generate post: %w", err)
	}
	out = strings.Trim(strings.TrimSpace(out), "\"")
	if out == "" {
		return "", fmt.Errorf("generated post is empty")
	}
	return out, nil
}
