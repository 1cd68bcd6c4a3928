package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/message-whisperer/agent-console/internal/model"
)

const (
	// StreamName is the JetStream stream holding console events.
	StreamName = "CONSOLE"

	// SubjectPrefix is the prefix for all console subjects.
	SubjectPrefix = "console"

	streamMaxAge = 7 * 24 * time.Hour
)

// StreamManager publishes console events to JetStream.
type StreamManager struct {
	js jetstream.JetStream
}

// NewStreamManager creates a stream manager on top of client.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{js: client.JetStream()}
}

// EnsureStream creates the console stream if it does not exist yet.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	if _, err := m.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := m.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      streamMaxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Discard:     jetstream.DiscardOld,
		Description: "Agent console notifications",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// NotificationSubject returns the subject a notification is published on.
// Missing parts collapse to "_" so the subject stays valid.
func NotificationSubject(businessID string, kind model.NotificationKind) string {
	return fmt.Sprintf("%s.%s.notify.%s", SubjectPrefix, token(businessID), token(string(kind)))
}

// PublishNotification publishes n and returns its stream sequence.
func (m *StreamManager) PublishNotification(ctx context.Context, n *model.Notification) (uint64, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal notification: %w", err)
	}

	ack, err := m.js.Publish(ctx, NotificationSubject(n.BusinessID, n.Kind), data, jetstream.WithMsgID(n.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to publish notification: %w", err)
	}
	return ack.Sequence, nil
}

func token(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n':
			return '_'
		}
		return r
	}, s)
	if s == "" {
		return "_"
	}
	return s
}
