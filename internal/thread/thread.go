// Package thread keeps the open conversation's messages current by polling
// the backend and layering the agent's optimistic messages on top.
package thread

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/message-whisperer/agent-console/internal/model"
	"github.com/message-whisperer/agent-console/pkg/logger"
	"github.com/message-whisperer/agent-console/pkg/metrics"
)

// DefaultPollInterval is used when the configured interval is not positive.
const DefaultPollInterval = 3 * time.Second

// Fetcher loads a conversation's full message history.
type Fetcher interface {
	GetMessages(ctx context.Context, conversationID string) ([]model.Message, error)
}

// Snapshot is a point-in-time copy of the open thread.
type Snapshot struct {
	ConversationID string          `json:"conversation_id"`
	Status         model.Status    `json:"status,omitempty"`
	Messages       []model.Message `json:"messages"`
	Polling        bool            `json:"polling"`
	Error          string          `json:"error,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Thread tracks one open conversation at a time.
type Thread struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *logger.Logger
	now      func() time.Time

	mu             sync.RWMutex
	conversationID string
	status         model.Status
	server         []model.Message
	pending        map[string][]Pending
	err            error
	updatedAt      time.Time
	generation     uint64
	cancel         context.CancelFunc
	subscribers    map[chan Snapshot]struct{}
}

// Option configures a Thread.
type Option func(*Thread)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Thread) { t.now = now }
}

// New creates a thread tracker polling every interval while a conversation
// is open.
func New(fetcher Fetcher, interval time.Duration, log *logger.Logger, opts ...Option) *Thread {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = logger.NewNop()
	}
	t := &Thread{
		fetcher:     fetcher,
		interval:    interval,
		logger:      log,
		now:         time.Now,
		pending:     make(map[string][]Pending),
		subscribers: make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open makes conversationID the open thread. Optimistic messages of the
// previously open conversation are discarded. Polling starts immediately
// unless status is terminal, and runs until ctx ends or the thread changes.
func (t *Thread) Open(ctx context.Context, conversationID string, status model.Status) {
	t.mu.Lock()
	t.stopLocked()
	if t.conversationID != "" && t.conversationID != conversationID {
		delete(t.pending, t.conversationID)
	}
	t.generation++
	t.conversationID = conversationID
	t.status = status
	t.server = nil
	t.err = nil
	t.updatedAt = time.Time{}
	if !status.Terminal() {
		t.startLocked(ctx)
	}
	t.updatePendingGauge()
	t.mu.Unlock()

	t.publish()
}

// Close stops polling and forgets the open thread.
func (t *Thread) Close() {
	t.mu.Lock()
	t.stopLocked()
	if t.conversationID != "" {
		delete(t.pending, t.conversationID)
	}
	t.generation++
	t.conversationID = ""
	t.status = ""
	t.server = nil
	t.err = nil
	t.updatePendingGauge()
	t.mu.Unlock()

	t.publish()
}

// SetStatus records a status change of the open conversation. Reaching the
// terminal status stops polling; leaving it restarts polling under ctx.
func (t *Thread) SetStatus(ctx context.Context, conversationID string, status model.Status) {
	t.mu.Lock()
	if conversationID != t.conversationID {
		t.mu.Unlock()
		return
	}
	t.status = status
	switch {
	case status.Terminal():
		t.stopLocked()
	case t.cancel == nil:
		t.startLocked(ctx)
	}
	t.mu.Unlock()

	t.publish()
}

// ConversationID returns the open conversation, or "".
func (t *Thread) ConversationID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conversationID
}

// Polling reports whether the open thread is being polled.
func (t *Thread) Polling() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cancel != nil
}

// Refresh fetches the open thread once.
func (t *Thread) Refresh(ctx context.Context) error {
	t.mu.RLock()
	id, gen := t.conversationID, t.generation
	t.mu.RUnlock()

	if id == "" {
		return nil
	}
	return t.poll(ctx, id, gen)
}

func (t *Thread) poll(ctx context.Context, conversationID string, gen uint64) error {
	msgs, err := t.fetcher.GetMessages(ctx, conversationID)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	t.mu.Lock()
	if gen != t.generation {
		t.mu.Unlock()
		metrics.ThreadPollsTotal.WithLabelValues("stale").Inc()
		t.logger.Debug("discarding stale thread response", zap.String("conversation_id", conversationID))
		return nil
	}
	if err != nil {
		t.err = err
		t.mu.Unlock()
		metrics.ThreadPollsTotal.WithLabelValues("error").Inc()
		t.logger.Warn("failed to poll thread", zap.String("conversation_id", conversationID), zap.Error(err))
		t.publish()
		return err
	}

	now := t.now()
	t.server = msgs
	t.err = nil
	t.updatedAt = now
	if p := t.pending[conversationID]; len(p) > 0 {
		t.pending[conversationID] = Reconcile(msgs, p, now)
	}
	t.updatePendingGauge()
	t.mu.Unlock()

	metrics.ThreadPollsTotal.WithLabelValues("ok").Inc()
	t.publish()
	return nil
}

func (t *Thread) run(ctx context.Context, conversationID string, gen uint64) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	_ = t.poll(ctx, conversationID, gen)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = t.poll(ctx, conversationID, gen)
		}
	}
}

func (t *Thread) startLocked(ctx context.Context) {
	pollCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	go t.run(pollCtx, t.conversationID, t.generation)
}

func (t *Thread) stopLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// AddOptimistic appends a local agent message with status sending to
// conversationID and returns it. Its ClientMessageID is the reconciliation
// key sent along with the message.
func (t *Thread) AddOptimistic(conversationID, content string) model.Message {
	now := t.now()
	msg := model.Message{
		ID:              model.OptimisticIDPrefix + uuid.New().String(),
		ClientMessageID: uuid.New().String(),
		Content:         content,
		Sender:          model.SenderAgent,
		Timestamp:       &now,
		Status:          model.DeliverySending,
	}

	t.mu.Lock()
	t.pending[conversationID] = append(t.pending[conversationID], Pending{Message: msg, InsertedAt: now})
	t.updatePendingGauge()
	t.mu.Unlock()

	t.publish()
	return msg
}

// MarkSent records that the backend accepted an optimistic message. The
// message stays in place until a poll returns its server copy.
func (t *Thread) MarkSent(conversationID, messageID string) {
	t.mu.Lock()
	for i := range t.pending[conversationID] {
		p := &t.pending[conversationID][i]
		if p.Message.ID == messageID {
			p.Message.Status = model.DeliverySent
		}
	}
	t.mu.Unlock()

	t.publish()
}

// DiscardOptimistic removes one optimistic message.
func (t *Thread) DiscardOptimistic(conversationID, messageID string) {
	t.mu.Lock()
	list := t.pending[conversationID]
	for i := range list {
		if list[i].Message.ID == messageID {
			t.pending[conversationID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(t.pending[conversationID]) == 0 {
		delete(t.pending, conversationID)
	}
	t.updatePendingGauge()
	t.mu.Unlock()

	t.publish()
}

// ClearOptimistic removes every optimistic message of conversationID.
func (t *Thread) ClearOptimistic(conversationID string) {
	t.mu.Lock()
	delete(t.pending, conversationID)
	t.updatePendingGauge()
	t.mu.Unlock()

	t.publish()
}

// Messages returns the merged thread of conversationID. Server messages are
// only known for the open conversation.
func (t *Thread) Messages(conversationID string) []model.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.messagesLocked(conversationID)
}

func (t *Thread) messagesLocked(conversationID string) []model.Message {
	var server []model.Message
	if conversationID == t.conversationID {
		server = t.server
	}
	return Merge(server, t.pending[conversationID], t.now())
}

// Snapshot copies the open thread.
func (t *Thread) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Thread) snapshotLocked() Snapshot {
	s := Snapshot{
		ConversationID: t.conversationID,
		Status:         t.status,
		Messages:       []model.Message{},
		Polling:        t.cancel != nil,
		UpdatedAt:      t.updatedAt,
	}
	if t.conversationID != "" {
		s.Messages = t.messagesLocked(t.conversationID)
	}
	if t.err != nil {
		s.Error = t.err.Error()
	}
	return s
}

// Subscribe returns a channel receiving a snapshot after every change. Slow
// readers only see the latest snapshot. Call the returned func to stop.
func (t *Thread) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	t.mu.Lock()
	t.subscribers[ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subscribers, ch)
			t.mu.Unlock()
		})
	}
}

func (t *Thread) publish() {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.subscribers) == 0 {
		return
	}
	snap := t.snapshotLocked()
	for ch := range t.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Stop ends polling; the thread keeps its last state.
func (t *Thread) Stop() {
	t.mu.Lock()
	t.stopLocked()
	t.mu.Unlock()
}

func (t *Thread) updatePendingGauge() {
	n := 0
	for _, p := range t.pending {
		n += len(p)
	}
	metrics.OptimisticMessagesPending.Set(float64(n))
}
