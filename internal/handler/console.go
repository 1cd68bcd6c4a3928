// Package handler provides the HTTP handlers of the console API.
package handler

import (
	"context"

	"github.com/message-whisperer/agent-console/internal/mediacache"
	"github.com/message-whisperer/agent-console/internal/model"
	"github.com/message-whisperer/agent-console/internal/service"
	"github.com/message-whisperer/agent-console/internal/store"
	"github.com/message-whisperer/agent-console/internal/thread"
)

// Console is the session the handlers operate on.
type Console interface {
	AgentID() string
	BusinessID() string

	Conversations() store.State
	Refresh(ctx context.Context) error
	LoadMore(ctx context.Context) (bool, error)
	SetFilter(ctx context.Context, filter model.Filter) error
	SwitchTenant(ctx context.Context, businessID string) error
	Select(conversationID string) error
	Agents(ctx context.Context) ([]model.Agent, error)

	Assign(ctx context.Context, conversationID, agentID string) error
	Resolve(ctx context.Context, conversationID string) error
	ToggleAI(ctx context.Context, conversationID string, enabled bool) error

	Thread() thread.Snapshot
	SubscribeThread() (<-chan thread.Snapshot, func())
	Send(ctx context.Context, conversationID, text string) (model.Message, error)
	SuggestReply(ctx context.Context, conversationID string) (string, error)
	Media(ctx context.Context, mediaID string) (mediacache.Resource, error)
	Notifications(limit int) []model.Notification
}

var _ Console = (*service.Console)(nil)
