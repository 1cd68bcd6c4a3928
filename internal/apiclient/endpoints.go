package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/message-whisperer/agent-console/internal/model"
)

func conversationPath(id, suffix string) string {
	return "/conversations/" + url.PathEscape(id) + suffix
}

// ListConversations fetches one page of the conversation queue. An empty
// cursor requests the first page.
func (c *Client) ListConversations(ctx context.Context, cursor string, limit int, filter model.Filter) (*model.ListConversationsResponse, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if status := filter.QueryValue(); status != "" {
		query.Set("status", status)
	}

	var resp model.ListConversationsResponse
	if err := c.do(ctx, request{
		operation: "list_conversations",
		method:    http.MethodGet,
		path:      "/conversations",
		query:     query,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMessages fetches the full message history of a conversation.
func (c *Client) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var resp model.ListMessagesResponse
	if err := c.do(ctx, request{
		operation: "get_messages",
		method:    http.MethodGet,
		path:      conversationPath(conversationID, "/messages"),
	}, &resp); err != nil {
		return nil, err
	}
	if resp.Messages == nil {
		return nil, fmt.Errorf("%w: get_messages: missing messages array", ErrMalformedResponse)
	}
	return *resp.Messages, nil
}

// Assign hands a conversation to an agent.
func (c *Client) Assign(ctx context.Context, conversationID, agentID string) error {
	return c.do(ctx, request{
		operation: "assign",
		method:    http.MethodPost,
		path:      conversationPath(conversationID, "/assign"),
		body:      model.AssignRequest{AgentID: agentID},
	}, nil)
}

// Resolve closes a conversation.
func (c *Client) Resolve(ctx context.Context, conversationID string) error {
	return c.do(ctx, request{
		operation: "resolve",
		method:    http.MethodPut,
		path:      conversationPath(conversationID, "/resolve"),
	}, nil)
}

// SetAI turns automated handling on or off for a conversation.
func (c *Client) SetAI(ctx context.Context, conversationID string, enabled bool) error {
	return c.do(ctx, request{
		operation: "toggle_ai",
		method:    http.MethodPatch,
		path:      conversationPath(conversationID, "/ai"),
		body:      model.ToggleAIRequest{Enabled: enabled},
	}, nil)
}

// SendMessage sends an agent message to the customer.
func (c *Client) SendMessage(ctx context.Context, conversationID string, req model.SendMessageRequest) (*model.SendMessageResponse, error) {
	var resp model.SendMessageResponse
	if err := c.do(ctx, request{
		operation: "send_message",
		method:    http.MethodPost,
		path:      conversationPath(conversationID, "/messages"),
		body:      req,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAgents returns the agents of the active business.
func (c *Client) ListAgents(ctx context.Context) ([]model.Agent, error) {
	var resp model.ListAgentsResponse
	if err := c.do(ctx, request{
		operation: "list_agents",
		method:    http.MethodGet,
		path:      "/agents",
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// FetchMedia downloads an attachment and returns its bytes and content type.
func (c *Client) FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	resp, err := c.send(ctx, request{
		operation: "fetch_media",
		method:    http.MethodGet,
		path:      "/media/" + url.PathEscape(mediaID),
	})
	if err != nil {
		return nil, "", err
	}
	contentType := resp.header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(resp.body)
	}
	return resp.body, contentType, nil
}
