// internal/app/significance.go
package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

const (
	MinSignificance      = 1
	MaxSignificance      = 10
	defaultScoreAttempts = 5
)

var firstNumber = regexp.MustCompile(`\d+`)

const scorerSystemPrompt = "You rate how interesting a post is on a scale of 1-10. " +
	"1 is a bland observation or an advertisement, 10 is a post people will remember. " +
	"Respond with only the number."

// SignificanceScorer rates a drafted post before it goes out.
type SignificanceScorer struct {
	llm      Completer
	attempts int
}

func NewSignificanceScorer(llm Completer) *SignificanceScorer {
	return &SignificanceScorer{llm: llm, attempts: defaultScoreAttempts}
}

// Score asks the model for a rating until it answers with a number, up to a
// fixed number of attempts. The rating is clamped to [1, 10].
func (s *SignificanceScorer) Score(ctx context.Context, content string) (int, error) {
	prompt := fmt.Sprintf("Rate this post:\n\n%q", content)
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		reply, err := s.llm.Complete(ctx, scorerSystemPrompt, prompt)
		if err != nil {
			lastErr = err
			continue
		}
		if score, ok := parseScore(reply); ok {
			return score, nil
		}
		lastErr = fmt.Errorf("no score in reply %q", reply)
	}
	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return 0, fmt.Errorf("failed to score post after %d attempts: %w", s.attempts, lastErr)
}

// parseScore takes the first integer in reply and clamps it.
func parseScore(reply string) (int, bool) {
	m := firstNumber.FindString(reply)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		// Too many digits to fit an int is still "very high".
		return MaxSignificance, true
	}
	return min(max(n, MinSignificance), MaxSignificance), true
}
