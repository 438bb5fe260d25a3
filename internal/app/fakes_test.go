package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"

	"pacer_agent/internal/domain/chain"
	"pacer_agent/internal/domain/notification"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type completion struct {
	reply string
	err   error
}

// scriptedCompleter answers from a script and repeats the last entry.
type scriptedCompleter struct {
	script  []completion
	prompts []string
}

func (c *scriptedCompleter) Complete(_ context.Context, _, user string) (string, error) {
	c.prompts = append(c.prompts, user)
	if len(c.script) == 0 {
		return "", errors.New("no scripted reply")
	}
	next := c.script[0]
	if len(c.script) > 1 {
		c.script = c.script[1:]
	}
	return next.reply, next.err
}

type fakePostRepo struct {
	recent    []*notification.Post
	created   []*notification.Post
	createErr error
	listErr   error
}

func (r *fakePostRepo) Create(_ context.Context, p *notification.Post) error {
	if r.createErr != nil {
		return r.createErr
	}
	p.ID = int64(len(r.created) + 1)
	r.created = append(r.created, p)
	return nil
}

func (r *fakePostRepo) ListRecent(_ context.Context, limit int) ([]*notification.Post, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	if len(r.recent) > limit {
		return r.recent[:limit], nil
	}
	return r.recent, nil
}

type fakeProcessedRepo struct {
	done      map[string]bool
	marked    [][]string
	markErr   error
	filterErr error
}

func newFakeProcessedRepo(done ...string) *fakeProcessedRepo {
	r := &fakeProcessedRepo{done: map[string]bool{}}
	for _, id := range done {
		r.done[id] = true
	}
	return r
}

func (r *fakeProcessedRepo) FilterUnprocessed(_ context.Context, ids []string) ([]string, error) {
	if r.filterErr != nil {
		return nil, r.filterErr
	}
	var out []string
	for _, id := range ids {
		if !r.done[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *fakeProcessedRepo) MarkProcessed(_ context.Context, ids []string) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.marked = append(r.marked, ids)
	for _, id := range ids {
		r.done[id] = true
	}
	return nil
}

type fakeSource struct {
	batches [][]notification.Item
	err     error
}

func (s *fakeSource) RetrieveBatch(context.Context) ([]notification.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeTelegram struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (t *fakeTelegram) SendMessage(chatID int64, text string, _ *telebot.SendOptions) (*telebot.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	t.sent = append(t.sent, sentMessage{chatID: chatID, text: text})
	return &telebot.Message{ID: 41 + len(t.sent)}, nil
}

type transfer struct {
	to  common.Address
	wei *big.Int
}

type fakeWallet struct {
	address    common.Address
	balance    *big.Int
	balanceErr error
	transfers  []transfer
	failTo     map[common.Address]error
}

func (w *fakeWallet) Address() common.Address { return w.address }

func (w *fakeWallet) Balance(context.Context) (*big.Int, error) {
	if w.balanceErr != nil {
		return nil, w.balanceErr
	}
	return new(big.Int).Set(w.balance), nil
}

func (w *fakeWallet) Transfer(_ context.Context, to common.Address, wei *big.Int) (common.Hash, error) {
	if err := w.failTo[to]; err != nil {
		return common.Hash{}, err
	}
	w.transfers = append(w.transfers, transfer{to: to, wei: new(big.Int).Set(wei)})
	w.balance = new(big.Int).Sub(w.balance, wei)
	return common.BigToHash(big.NewInt(int64(len(w.transfers)))), nil
}

type fakeTeleportRepo struct {
	usernames []string
}

func (r *fakeTeleportRepo) UpsertTeleport(context.Context, *chain.Teleport) error { return nil }

func (r *fakeTeleportRepo) ListTeleportUsernames(context.Context) ([]string, error) {
	return r.usernames, nil
}

type fakeController struct {
	paused bool
	status RunStatus
}

func (c *fakeController) Pause() bool {
	if c.paused {
		return false
	}
	c.paused = true
	return true
}

func (c *fakeController) Resume() bool {
	if !c.paused {
		return false
	}
	c.paused = false
	return true
}

func (c *fakeController) Status() RunStatus {
	st := c.status
	st.Paused = c.paused
	return st
}
