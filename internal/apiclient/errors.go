package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized means the backend rejected the session token. The
	// stored credentials have already been cleared when it is returned.
	ErrUnauthorized = errors.New("session expired")

	// ErrMalformedResponse means the backend answered with a body that does
	// not match the expected contract.
	ErrMalformedResponse = errors.New("malformed backend response")

	// ErrResponseTooLarge means the body exceeded the size limit and was not
	// read to the end.
	ErrResponseTooLarge = errors.New("backend response too large")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ServerError reports whether the failure was on the backend side.
func (e *APIError) ServerError() bool {
	return e.StatusCode >= 500
}

// IsUnauthorized reports whether err is a session expiry.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Detail extracts a user-facing message from err, preferring the backend's
// own message when err came from the backend.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// StatusCode returns the HTTP status behind err, or 0 when err is not an
// APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// extractMessage pulls a message out of an error body. FastAPI style
// "detail" wins over "message" and "error"; a list of validation errors is
// joined by "; ".
func extractMessage(body []byte, status int) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			raw, ok := payload[key]
			if !ok {
				continue
			}
			if msg := rawMessage(raw); msg != "" {
				return msg
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

func rawMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				parts = append(parts, item.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
