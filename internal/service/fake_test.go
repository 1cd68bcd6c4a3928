package service

import (
	"context"
	"sync"

	"github.com/message-whisperer/agent-console/internal/model"
)

// fakeBackend serves a fixed queue. Each mutation hook, when set, decides
// the outcome of the call and may block.
type fakeBackend struct {
	mu            sync.Mutex
	businessID    string
	conversations []model.ConversationSummary
	messages      map[string][]model.Message
	agents        []model.Agent
	listErr       error
	listCalls     int

	assign  func(conversationID, agentID string) error
	resolve func(conversationID string) error
	setAI   func(conversationID string, enabled bool) error
	send    func(conversationID string, req model.SendMessageRequest) error

	sent []model.SendMessageRequest
}

func newFakeBackend(convs ...model.ConversationSummary) *fakeBackend {
	return &fakeBackend{
		businessID:    "biz-1",
		conversations: convs,
		messages:      make(map[string][]model.Message),
	}
}

func (f *fakeBackend) ListConversations(_ context.Context, _ string, _ int, _ model.Filter) (*model.ListConversationsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.ConversationSummary, len(f.conversations))
	copy(out, f.conversations)
	return &model.ListConversationsResponse{Conversations: out}, nil
}

func (f *fakeBackend) GetMessages(_ context.Context, id string) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Message{}, f.messages[id]...), nil
}

func (f *fakeBackend) FetchMedia(_ context.Context, id string) ([]byte, string, error) {
	return []byte("media-" + id), "image/png", nil
}

func (f *fakeBackend) Assign(_ context.Context, id, agentID string) error {
	if f.assign != nil {
		return f.assign(id, agentID)
	}
	return nil
}

func (f *fakeBackend) Resolve(_ context.Context, id string) error {
	if f.resolve != nil {
		return f.resolve(id)
	}
	return nil
}

func (f *fakeBackend) SetAI(_ context.Context, id string, enabled bool) error {
	if f.setAI != nil {
		return f.setAI(id, enabled)
	}
	return nil
}

func (f *fakeBackend) SendMessage(_ context.Context, id string, req model.SendMessageRequest) (*model.SendMessageResponse, error) {
	f.mu.Lock()
	f.sent = append(f.sent, req)
	f.mu.Unlock()
	if f.send != nil {
		if err := f.send(id, req); err != nil {
			return nil, err
		}
	}
	return &model.SendMessageResponse{}, nil
}

func (f *fakeBackend) ListAgents(_ context.Context) ([]model.Agent, error) {
	return f.agents, nil
}

func (f *fakeBackend) BusinessID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.businessID
}

func (f *fakeBackend) SetBusinessID(id string) {
	f.mu.Lock()
	f.businessID = id
	f.mu.Unlock()
}

type fakeDrafter struct {
	got   []model.Message
	draft string
	err   error
}

func (d *fakeDrafter) Draft(_ context.Context, messages []model.Message) (string, error) {
	d.got = messages
	return d.draft, d.err
}
