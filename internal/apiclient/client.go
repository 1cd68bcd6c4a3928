// Package apiclient is the HTTP client for the Message Whisperer backend.
// It attaches the agent's bearer token and business id to every request,
// turns error responses into typed errors, and ends the session on 401.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/message-whisperer/agent-console/pkg/logger"
	"github.com/message-whisperer/agent-console/pkg/metrics"
)

const (
	// BusinessHeader carries the active tenant on every request.
	BusinessHeader = "X-Business-ID"
	// CorrelationHeader carries a per-request id for log correlation.
	CorrelationHeader = "X-Correlation-ID"

	maxBodySize = 32 << 20
)

// Config holds backend connection settings.
type Config struct {
	BaseURL    string
	Token      string
	BusinessID string
	Timeout    time.Duration
}

// SessionExpiredFunc is called once the backend has rejected the token and
// the credentials were cleared. It plays the role of "redirect to login".
type SessionExpiredFunc func()

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSessionExpired registers the session expiry callback.
func WithSessionExpired(fn SessionExpiredFunc) Option {
	return func(c *Client) { c.onExpired = fn }
}

// WithLogger sets the client logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.logger = log }
}

// Client talks to the backend on behalf of one agent session.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	logger     *logger.Logger
	tracer     trace.Tracer
	onExpired  SessionExpiredFunc
	maxBody    int64

	mu         sync.RWMutex
	token      string
	businessID string
}

// New creates a backend client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "message-whisperer-console/1.0",
		},
		logger:     logger.NewNop(),
		tracer:     otel.Tracer("github.com/message-whisperer/agent-console/internal/apiclient"),
		token:      cfg.Token,
		businessID: cfg.BusinessID,
		maxBody:    maxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token, e.g. after a fresh login.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Authenticated reports whether a token is present.
func (c *Client) Authenticated() bool {
	return c.Token() != ""
}

// ClearCredentials drops the stored token.
func (c *Client) ClearCredentials() {
	c.SetToken("")
}

// BusinessID returns the active tenant.
func (c *Client) BusinessID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.businessID
}

// SetBusinessID switches the active tenant for subsequent requests.
func (c *Client) SetBusinessID(id string) {
	c.mu.Lock()
	c.businessID = id
	c.mu.Unlock()
}

// request describes one backend call.
type request struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      any
}

// response is a successful backend answer.
type response struct {
	status int
	header http.Header
	body   []byte
}

// do executes req and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, req.operation, err)
	}
	return nil
}

// send executes req without retries and returns the raw 2xx response.
func (c *Client) send(ctx context.Context, req request) (*response, error) {
	ctx, span := c.tracer.Start(ctx, "backend."+req.operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.method),
			attribute.String("backend.path", req.path),
		),
	)
	defer span.End()

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	correlationID := uuid.New().String()
	c.setHeaders(httpReq, correlationID, req.body != nil)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordBackendCall(req.operation, "network_error", duration.Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.logger.Warn("backend request failed",
			zap.String("operation", req.operation),
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s: %w", req.operation, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxBody+1))
	metrics.RecordBackendCall(req.operation, strconv.Itoa(httpResp.StatusCode), duration.Seconds())
	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reading body failed")
		return nil, fmt.Errorf("%s: reading response body: %w", req.operation, err)
	}
	if int64(len(body)) > c.maxBody {
		span.SetStatus(codes.Error, "response too large")
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", req.operation, ErrResponseTooLarge, c.maxBody)
	}

	c.logger.Debug("backend request completed",
		zap.String("operation", req.operation),
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", duration),
		zap.String("correlation_id", correlationID),
	)

	if httpResp.StatusCode == http.StatusUnauthorized {
		span.SetStatus(codes.Error, "unauthorized")
		c.expireSession()
		return nil, &APIError{
			StatusCode: httpResp.StatusCode,
			Message:    "session expired, please log in again",
			Body:       body,
			Err:        ErrUnauthorized,
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: httpResp.StatusCode,
			Message:    extractMessage(body, httpResp.StatusCode),
			Body:       body,
		}
		span.SetStatus(codes.Error, apiErr.Message)
		return nil, apiErr
	}

	return &response{
		status: httpResp.StatusCode,
		header: httpResp.Header,
		body:   body,
	}, nil
}

func (c *Client) setHeaders(req *http.Request, correlationID string, hasBody bool) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(CorrelationHeader, correlationID)

	c.mu.RLock()
	token, businessID := c.token, c.businessID
	c.mu.RUnlock()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if businessID != "" {
		req.Header.Set(BusinessHeader, businessID)
	}
}

func (c *Client) expireSession() {
	c.ClearCredentials()
	c.logger.Warn("backend rejected session token, credentials cleared")
	if c.onExpired != nil {
		c.onExpired()
	}
}
