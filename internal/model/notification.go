package model

import (
	"time"
)

// NotificationKind is the severity of an agent notification.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Operation names the action a notification is about.
type Operation string

const (
	OperationAssign   Operation = "assign"
	OperationResolve  Operation = "resolve"
	OperationToggleAI Operation = "toggle_ai"
	OperationSend     Operation = "send"
	OperationFetch    Operation = "fetch"
	OperationDraft    Operation = "draft"
)

// Notification is a transient message shown to the agent.
type Notification struct {
	ID             string           `json:"id"`
	Kind           NotificationKind `json:"kind"`
	Operation      Operation        `json:"operation"`
	ConversationID string           `json:"conversation_id,omitempty"`
	BusinessID     string           `json:"business_id,omitempty"`
	Message        string           `json:"message"`
	Detail         string           `json:"detail,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}
