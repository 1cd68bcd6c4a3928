// Package service coordinates one agent session: the conversation queue, the
// open thread, and the optimistic mutations an agent performs on them.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/message-whisperer/agent-console/internal/apiclient"
	"github.com/message-whisperer/agent-console/internal/mediacache"
	"github.com/message-whisperer/agent-console/internal/model"
	"github.com/message-whisperer/agent-console/internal/notify"
	"github.com/message-whisperer/agent-console/internal/store"
	"github.com/message-whisperer/agent-console/internal/thread"
	"github.com/message-whisperer/agent-console/pkg/logger"
)

var (
	// ErrEmptyMessage is returned when an agent tries to send blank text.
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrDraftingDisabled is returned when no language model is configured.
	ErrDraftingDisabled = errors.New("reply drafting is not configured")
	// ErrNoAgent is returned when the session has no agent identity.
	ErrNoAgent = errors.New("agent id is required")
	// ErrNoBusiness is returned for a tenant switch to an empty business.
	ErrNoBusiness = errors.New("business id is required")
)

// Backend is the subset of the backend client the console uses.
type Backend interface {
	store.Fetcher
	thread.Fetcher
	mediacache.Fetcher

	Assign(ctx context.Context, conversationID, agentID string) error
	Resolve(ctx context.Context, conversationID string) error
	SetAI(ctx context.Context, conversationID string, enabled bool) error
	SendMessage(ctx context.Context, conversationID string, req model.SendMessageRequest) (*model.SendMessageResponse, error)
	ListAgents(ctx context.Context) ([]model.Agent, error)

	BusinessID() string
	SetBusinessID(id string)
}

// Drafter suggests a reply for a thread.
type Drafter interface {
	Draft(ctx context.Context, messages []model.Message) (string, error)
}

// Config describes the session.
type Config struct {
	AgentID      string
	AgentName    string
	PageSize     int
	PollInterval time.Duration
	Filter       model.Filter
	FeedSize     int
}

// Option configures a Console.
type Option func(*Console)

// WithNotifier adds a notifier next to the in-memory feed.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Console) { c.notifiers = append(c.notifiers, n) }
}

// WithMediaLoader serves media through a cache.
func WithMediaLoader(l *mediacache.Loader) Option {
	return func(c *Console) { c.media = l }
}

// WithDrafter enables reply suggestions.
func WithDrafter(d Drafter) Option {
	return func(c *Console) { c.drafter = d }
}

// WithClock overrides the time source for notifications and the thread.
func WithClock(now func() time.Time) Option {
	return func(c *Console) { c.now = now }
}

// Console is the agent's session facade.
type Console struct {
	backend       Backend
	conversations *store.ConversationStore
	thread        *thread.Thread
	feed          *notify.Feed
	notifiers     notify.Multi
	media         *mediacache.Loader
	drafter       Drafter
	logger        *logger.Logger
	now           func() time.Time

	agentID   string
	agentName string

	agentsMu sync.RWMutex
	agents   map[string]string

	// ctx bounds background polling for the lifetime of the console.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a console for one agent session.
func New(backend Backend, cfg Config, log *logger.Logger, opts ...Option) (*Console, error) {
	if cfg.AgentID == "" {
		return nil, ErrNoAgent
	}
	if log == nil {
		log = logger.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Console{
		backend:   backend,
		feed:      notify.NewFeed(cfg.FeedSize),
		logger:    log,
		now:       time.Now,
		agentID:   cfg.AgentID,
		agentName: cfg.AgentName,
		agents:    make(map[string]string),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.notifiers = append(notify.Multi{c.feed}, c.notifiers...)
	c.conversations = store.NewConversationStore(backend, cfg.PageSize, cfg.Filter, log)
	c.thread = thread.New(backend, cfg.PollInterval, log, thread.WithClock(c.now))

	return c, nil
}

// Close stops background polling.
func (c *Console) Close() {
	c.thread.Stop()
	c.cancel()
}

// AgentID returns the session's agent.
func (c *Console) AgentID() string {
	return c.agentID
}

// BusinessID returns the active tenant.
func (c *Console) BusinessID() string {
	return c.backend.BusinessID()
}

// Conversations returns the current queue.
func (c *Console) Conversations() store.State {
	return c.conversations.Snapshot()
}

// Thread returns the open thread.
func (c *Console) Thread() thread.Snapshot {
	return c.thread.Snapshot()
}

// SubscribeThread streams thread snapshots until the returned func is called.
func (c *Console) SubscribeThread() (<-chan thread.Snapshot, func()) {
	return c.thread.Subscribe()
}

// Notifications returns up to limit recent notifications, newest first.
func (c *Console) Notifications(limit int) []model.Notification {
	return c.feed.Recent(limit)
}

func (c *Console) succeed(ctx context.Context, op model.Operation, conversationID, message string) {
	c.notifiers.Notify(ctx, c.notification(model.NotificationSuccess, op, conversationID, message, ""))
}

func (c *Console) fail(ctx context.Context, op model.Operation, conversationID, message string, err error) {
	c.logger.Warn(message,
		zap.String("operation", string(op)),
		zap.String("conversation_id", conversationID),
		zap.Int("status", apiclient.StatusCode(err)),
		zap.Error(err),
	)
	c.notifiers.Notify(ctx, c.notification(model.NotificationError, op, conversationID, message, apiclient.Detail(err)))
}

func (c *Console) notification(kind model.NotificationKind, op model.Operation, conversationID, message, detail string) model.Notification {
	return model.Notification{
		ID:             uuid.New().String(),
		Kind:           kind,
		Operation:      op,
		ConversationID: conversationID,
		BusinessID:     c.backend.BusinessID(),
		Message:        message,
		Detail:         detail,
		CreatedAt:      c.now(),
	}
}
