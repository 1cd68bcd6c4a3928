package service

import (
	"context"
	"strings"

	"github.com/message-whisperer/agent-console/internal/mediacache"
	"github.com/message-whisperer/agent-console/internal/model"
	"github.com/message-whisperer/agent-console/pkg/metrics"
)

// Send delivers text to the customer. The message shows up in the thread
// with status sending before the backend is called; a failed send removes
// it again. The returned message is the local copy.
func (c *Console) Send(ctx context.Context, conversationID, text string) (model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return model.Message{}, ErrEmptyMessage
	}

	msg := c.thread.AddOptimistic(conversationID, text)

	_, err := c.backend.SendMessage(ctx, conversationID, model.SendMessageRequest{
		Text:            text,
		ClientMessageID: msg.ClientMessageID,
	})
	metrics.RecordMutation(string(model.OperationSend), err)
	if err != nil {
		c.thread.DiscardOptimistic(conversationID, msg.ID)
		metrics.RollbacksTotal.WithLabelValues(string(model.OperationSend)).Inc()
		c.fail(ctx, model.OperationSend, conversationID, "Failed to send message", err)
		return model.Message{}, err
	}

	c.thread.MarkSent(conversationID, msg.ID)
	msg.Status = model.DeliverySent
	return msg, nil
}

// SuggestReply drafts a reply for conversationID. The draft is returned to
// the agent and never sent on its own.
func (c *Console) SuggestReply(ctx context.Context, conversationID string) (string, error) {
	if c.drafter == nil {
		return "", ErrDraftingDisabled
	}

	var messages []model.Message
	if c.thread.ConversationID() == conversationID {
		messages = c.thread.Messages(conversationID)
	} else {
		fetched, err := c.backend.GetMessages(ctx, conversationID)
		if err != nil {
			c.fail(ctx, model.OperationDraft, conversationID, "Failed to load messages for a draft", err)
			return "", err
		}
		messages = fetched
	}

	draft, err := c.drafter.Draft(ctx, messages)
	if err != nil {
		c.fail(ctx, model.OperationDraft, conversationID, "Failed to draft a reply", err)
		return "", err
	}
	return draft, nil
}

// Media returns an attachment of the active business.
func (c *Console) Media(ctx context.Context, mediaID string) (mediacache.Resource, error) {
	if c.media != nil {
		return c.media.Load(ctx, c.backend.BusinessID(), mediaID)
	}
	data, contentType, err := c.backend.FetchMedia(ctx, mediaID)
	if err != nil {
		return mediacache.Resource{}, err
	}
	return mediacache.Resource{Data: data, ContentType: contentType}, nil
}
