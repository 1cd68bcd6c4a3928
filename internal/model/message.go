package model

import (
	"strings"
	"time"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
	SenderBot   Sender = "bot"
)

// DeliveryStatus tracks an outbound message through WhatsApp delivery.
type DeliveryStatus string

const (
	DeliverySending   DeliveryStatus = "sending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
	DeliveryFailed    DeliveryStatus = "failed"
)

// OptimisticIDPrefix marks message ids generated locally before the server
// has confirmed the message.
const OptimisticIDPrefix = "optimistic-"

// MediaRef points at an attachment fetched separately from the thread.
type MediaRef struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// Message is one entry in a conversation thread.
type Message struct {
	ID              string         `json:"id"`
	ClientMessageID string         `json:"client_message_id,omitempty"`
	Content         string         `json:"content"`
	Sender          Sender         `json:"sender"`
	Timestamp       *time.Time     `json:"timestamp,omitempty"`
	CreatedAt       *time.Time     `json:"created_at,omitempty"`
	Status          DeliveryStatus `json:"status,omitempty"`
	Media           *MediaRef      `json:"media,omitempty"`
}

// Optimistic reports whether the message exists only locally.
func (m *Message) Optimistic() bool {
	return strings.HasPrefix(m.ID, OptimisticIDPrefix)
}

// EffectiveTime is the time the message sorts by: Timestamp, then CreatedAt,
// then fallback.
func (m *Message) EffectiveTime(fallback time.Time) time.Time {
	if m.Timestamp != nil && !m.Timestamp.IsZero() {
		return *m.Timestamp
	}
	if m.CreatedAt != nil && !m.CreatedAt.IsZero() {
		return *m.CreatedAt
	}
	return fallback
}

// ListMessagesResponse is the only accepted shape of a thread response.
// A nil Messages means the envelope was missing.
type ListMessagesResponse struct {
	Messages *[]Message `json:"messages"`
}

// SendMessageRequest is the body of a send call.
type SendMessageRequest struct {
	Text            string `json:"text"`
	ClientMessageID string `json:"client_message_id,omitempty"`
}

// SendMessageResponse is returned by the backend after accepting a message.
type SendMessageResponse struct {
	Message *Message `json:"message,omitempty"`
}
