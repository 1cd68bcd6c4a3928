// Package notify delivers agent-facing notifications about mutation outcomes.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/message-whisperer/agent-console/internal/model"
	"github.com/message-whisperer/agent-console/pkg/logger"
	"github.com/message-whisperer/agent-console/pkg/metrics"
)

// Notifier shows a notification to the agent.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n model.Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n model.Notification) {
	f(ctx, n)
}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n model.Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a log notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogNotifier{logger: log}
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(_ context.Context, n model.Notification) {
	metrics.NotificationsTotal.WithLabelValues(string(n.Kind), string(n.Operation)).Inc()

	fields := []zap.Field{
		zap.String("notification_id", n.ID),
		zap.String("operation", string(n.Operation)),
		zap.String("conversation_id", n.ConversationID),
		zap.String("business_id", n.BusinessID),
	}
	if n.Detail != "" {
		fields = append(fields, zap.String("detail", n.Detail))
	}

	if n.Kind == model.NotificationError {
		l.logger.Warn(n.Message, fields...)
		return
	}
	l.logger.Info(n.Message, fields...)
}

// DefaultFeedSize is used when the configured feed size is not positive.
const DefaultFeedSize = 50

// Feed keeps the most recent notifications, newest first.
type Feed struct {
	mu    sync.RWMutex
	items []model.Notification
	size  int
}

// NewFeed creates a feed holding at most size notifications.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Feed{size: size}
}

// Notify implements Notifier.
func (f *Feed) Notify(_ context.Context, n model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append([]model.Notification{n}, f.items...)
	if len(f.items) > f.size {
		f.items = f.items[:f.size]
	}
}

// Recent returns up to limit notifications, newest first. A non-positive
// limit returns all of them.
func (f *Feed) Recent(limit int) []model.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if limit <= 0 || limit > len(f.items) {
		limit = len(f.items)
	}
	out := make([]model.Notification, limit)
	copy(out, f.items[:limit])
	return out
}

// Clear empties the feed.
func (f *Feed) Clear() {
	f.mu.Lock()
	f.items = nil
	f.mu.Unlock()
}
