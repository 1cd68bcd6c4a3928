package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/message-whisperer/agent-console/internal/model"
)

type fakeClient struct {
	resp *CompletionResponse
	err  error
	got  *CompletionRequest
}

func (f *fakeClient) Complete(_ context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeClient) Name() string { return "fake" }

func thread(n int) []model.Message {
	out := make([]model.Message, n)
	for i := range out {
		sender := model.SenderUser
		if i%2 == 1 {
			sender = model.SenderAgent
		}
		out[i] = model.Message{ID: fmt.Sprintf("m%d", i), Content: fmt.Sprintf("line %d", i), Sender: sender}
	}
	return out
}

func TestDrafter_Draft(t *testing.T) {
	t.Run("returns trimmed draft", func(t *testing.T) {
		client := &fakeClient{resp: &CompletionResponse{Content: "  Sure, I can help.\n", Model: "m"}}
		d := NewDrafter(client, nil, WithModel("m"))

		draft, err := d.Draft(context.Background(), thread(2))

		require.NoError(t, err)
		assert.Equal(t, "Sure, I can help.", draft)
		assert.Equal(t, "m", client.got.Model)
		assert.NotEmpty(t, client.got.System)
		require.Len(t, client.got.Messages, 1)
		assert.Equal(t, RoleUser, client.got.Messages[0].Role)
	})

	t.Run("limits history", func(t *testing.T) {
		client := &fakeClient{resp: &CompletionResponse{Content: "ok"}}
		d := NewDrafter(client, nil, WithHistory(3))

		_, err := d.Draft(context.Background(), thread(10))

		require.NoError(t, err)
		prompt := client.got.Messages[0].Content
		assert.NotContains(t, prompt, "line 6")
		assert.Contains(t, prompt, "line 7")
		assert.Contains(t, prompt, "line 9")
	})

	t.Run("empty thread", func(t *testing.T) {
		_, err := NewDrafter(&fakeClient{}, nil).Draft(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNoMessages)
	})

	t.Run("empty completion", func(t *testing.T) {
		client := &fakeClient{resp: &CompletionResponse{Content: "   "}}
		_, err := NewDrafter(client, nil).Draft(context.Background(), thread(1))
		assert.ErrorIs(t, err, ErrEmptyDraft)
	})

	t.Run("provider error is wrapped", func(t *testing.T) {
		boom := errors.New("rate limited")
		_, err := NewDrafter(&fakeClient{err: boom}, nil).Draft(context.Background(), thread(1))
		assert.ErrorIs(t, err, boom)
	})
}

func TestTranscript(t *testing.T) {
	msgs := []model.Message{
		{Content: "Hi, where is my order?", Sender: model.SenderUser},
		{Content: "Let me check.", Sender: model.SenderBot},
		{Sender: model.SenderUser, Media: &model.MediaRef{ID: "md1", MimeType: "image/jpeg"}},
		{Content: "   ", Sender: model.SenderAgent},
	}

	got := Transcript(msgs)

	assert.Contains(t, got, "Customer: Hi, where is my order?\n")
	assert.Contains(t, got, "Assistant bot: Let me check.\n")
	assert.Contains(t, got, "Customer: [attachment: image/jpeg]\n")
	assert.NotContains(t, got, "Agent: ")
}

func TestOpenAIClient_Complete(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		body = string(b)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello!"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClientWithBaseURL("sk-test", srv.URL+"/v1")
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), &CompletionRequest{
		System:   "be nice",
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Content)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 3, resp.TokensOut)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Contains(t, body, `"role":"system"`)
	assert.Contains(t, body, DefaultOpenAIModel)
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("mystery", "key")
	assert.Error(t, err)

	_, err = NewClient(ProviderOpenAI, "")
	assert.Error(t, err)

	c, err := NewClient(ProviderAnthropic, "key")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())
}

func TestSelectProvider(t *testing.T) {
	both := Keys{Anthropic: "ak", OpenAI: "ok"}

	tests := []struct {
		name     string
		provider string
		keys     Keys
		want     Provider
		key      string
		err      bool
	}{
		{"auto prefers anthropic", "", both, ProviderAnthropic, "ak", false},
		{"auto falls back to openai", "", Keys{OpenAI: "ok"}, ProviderOpenAI, "ok", false},
		{"explicit openai", "OpenAI", both, ProviderOpenAI, "ok", false},
		{"explicit without key", "anthropic", Keys{OpenAI: "ok"}, "", "", true},
		{"nothing configured", "", Keys{}, "", "", true},
		{"unknown", "mistral", both, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, key, err := SelectProvider(tt.provider, tt.keys)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
			assert.Equal(t, tt.key, key)
		})
	}

	_, _, err := SelectProvider("", Keys{})
	assert.ErrorIs(t, err, ErrNoProvider)
}
