package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/message-whisperer/agent-console/internal/model"
	"github.com/message-whisperer/agent-console/pkg/logger"
)

// EventPublisher is the part of the NATS stream manager the publisher needs.
type EventPublisher interface {
	PublishNotification(ctx context.Context, n *model.Notification) (uint64, error)
}

// Publisher forwards notifications to JetStream. Publish failures are logged
// and never affect the mutation that caused the notification.
type Publisher struct {
	events EventPublisher
	logger *logger.Logger
}

// NewPublisher creates a publisher.
func NewPublisher(events EventPublisher, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Publisher{events: events, logger: log}
}

// Notify implements Notifier.
func (p *Publisher) Notify(ctx context.Context, n model.Notification) {
	seq, err := p.events.PublishNotification(context.WithoutCancel(ctx), &n)
	if err != nil {
		p.logger.Warn("failed to publish notification",
			zap.String("notification_id", n.ID),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("notification published",
		zap.String("notification_id", n.ID),
		zap.Uint64("sequence", seq),
	)
}
