package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/message-whisperer/agent-console/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL:    server.URL,
		Token:      "tok-123",
		BusinessID: "biz-1",
	}, opts...)
	require.NoError(t, err)
	return client
}

func TestNew(t *testing.T) {
	t.Run("requires base URL", func(t *testing.T) {
		_, err := New(Config{})
		assert.Error(t, err)
	})

	t.Run("rejects invalid base URL", func(t *testing.T) {
		_, err := New(Config{BaseURL: "://bad"})
		assert.Error(t, err)
	})
}

func TestClient_Headers(t *testing.T) {
	var got http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{"agents":[]}`))
	})

	_, err := client.ListAgents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", got.Get("Authorization"))
	assert.Equal(t, "biz-1", got.Get(BusinessHeader))
	assert.NotEmpty(t, got.Get(CorrelationHeader))
	assert.Equal(t, "application/json", got.Get("Accept"))

	client.SetBusinessID("biz-2")
	_, err = client.ListAgents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "biz-2", got.Get(BusinessHeader))
}

func TestClient_ListConversations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "c-20", r.URL.Query().Get("cursor"))
		assert.Equal(t, "human_needed", r.URL.Query().Get("status"))
		_, _ = w.Write([]byte(`{"conversations":[{"id":"a","status":"open"}],"next_cursor":null}`))
	})

	resp, err := client.ListConversations(context.Background(), "c-20", 20, model.FilterHumanNeeded)
	require.NoError(t, err)
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, "a", resp.Conversations[0].ID)
	assert.Nil(t, resp.NextCursor)
}

func TestClient_GetMessages(t *testing.T) {
	t.Run("accepts canonical envelope", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/conversations/T1/messages", r.URL.Path)
			_, _ = w.Write([]byte(`{"messages":[{"id":"m1","content":"hi","sender":"user"}]}`))
		})

		msgs, err := client.GetMessages(context.Background(), "T1")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, model.SenderUser, msgs[0].Sender)
	})

	t.Run("accepts empty thread", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"messages":[]}`))
		})

		msgs, err := client.GetMessages(context.Background(), "T1")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("rejects other envelopes", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"messages":[]}}`))
		})

		_, err := client.GetMessages(context.Background(), "T1")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("rejects bare array", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"id":"m1"}]`))
		})

		_, err := client.GetMessages(context.Background(), "T1")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestClient_MutationBodies(t *testing.T) {
	type call struct {
		method string
		path   string
		body   map[string]any
	}
	var calls []call

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		c := call{method: r.Method, path: r.URL.Path}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &c.body)
		}
		calls = append(calls, c)
		w.WriteHeader(http.StatusOK)
	})

	ctx := context.Background()
	require.NoError(t, client.Assign(ctx, "T1", "agent-7"))
	require.NoError(t, client.Resolve(ctx, "T1"))
	require.NoError(t, client.SetAI(ctx, "T1", false))
	_, err := client.SendMessage(ctx, "T1", model.SendMessageRequest{Text: "Hello", ClientMessageID: "cm-1"})
	require.NoError(t, err)

	require.Len(t, calls, 4)
	assert.Equal(t, call{http.MethodPost, "/conversations/T1/assign", map[string]any{"agent_id": "agent-7"}}, calls[0])
	assert.Equal(t, http.MethodPut, calls[1].method)
	assert.Equal(t, "/conversations/T1/resolve", calls[1].path)
	assert.Nil(t, calls[1].body)
	assert.Equal(t, call{http.MethodPatch, "/conversations/T1/ai", map[string]any{"enabled": false}}, calls[2])
	assert.Equal(t, "Hello", calls[3].body["text"])
	assert.Equal(t, "cm-1", calls[3].body["client_message_id"])
}

func TestClient_Errors(t *testing.T) {
	t.Run("extracts detail message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"detail":"conversation already resolved"}`))
		})

		err := client.Resolve(context.Background(), "T1")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
		assert.Equal(t, "conversation already resolved", Detail(err))
		assert.False(t, apiErr.ServerError())
	})

	t.Run("joins validation errors", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":[{"msg":"text required"},{"msg":"too long"}]}`))
		})

		err := client.Assign(context.Background(), "T1", "")
		assert.Equal(t, "text required; too long", Detail(err))
	})

	t.Run("falls back to status text", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		})

		err := client.Resolve(context.Background(), "T1")
		assert.Equal(t, "Bad Gateway", Detail(err))
		assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	})

	t.Run("network failure is not an API error", func(t *testing.T) {
		client, err := New(Config{BaseURL: "http://127.0.0.1:1"})
		require.NoError(t, err)

		err = client.Resolve(context.Background(), "T1")
		require.Error(t, err)
		assert.Equal(t, 0, StatusCode(err))
	})
}

func TestClient_Unauthorized(t *testing.T) {
	expired := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"token expired"}`))
	}, WithSessionExpired(func() { expired++ }))

	_, err := client.ListConversations(context.Background(), "", 20, model.FilterAll)

	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 1, expired)
	assert.False(t, client.Authenticated())
	assert.Empty(t, client.Token())
}

func TestClient_FetchMedia(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/media/img-1", r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})

	data, contentType, err := client.FetchMedia(context.Background(), "img-1")
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Len(t, data, 4)
}

func TestClient_ResponseTooLarge(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("0123456789abcdef!"))
	})
	client.maxBody = 16

	data, _, err := client.FetchMedia(context.Background(), "img-1")

	assert.ErrorIs(t, err, ErrResponseTooLarge)
	assert.Nil(t, data)

	client.maxBody = 17
	data, _, err = client.FetchMedia(context.Background(), "img-1")
	require.NoError(t, err)
	assert.Len(t, data, 17)
}

func TestParseClaims(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "agent-7"},
		BusinessID:       "biz-9",
		Name:             "Ana",
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-7", claims.AgentID())
	assert.Equal(t, "biz-9", claims.BusinessID)

	_, err = ParseClaims("")
	assert.Error(t, err)

	_, err = ParseClaims("not-a-jwt")
	assert.Error(t, err)
}
