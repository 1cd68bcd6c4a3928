package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/message-whisperer/agent-console/internal/apiclient"
	"github.com/message-whisperer/agent-console/internal/llm"
	"github.com/message-whisperer/agent-console/internal/mediacache"
	"github.com/message-whisperer/agent-console/internal/service"
	"github.com/message-whisperer/agent-console/internal/store"
)

const maxRequestBody = 1 << 20

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a console error to a status and writes it. Backend
// client errors keep their status; backend and network failures become 502.
func writeServiceError(w http.ResponseWriter, message string, err error) {
	writeJSON(w, statusFor(err), ErrorResponse{Error: message, Detail: apiclient.Detail(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrNoBusiness):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrDraftingDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, llm.ErrNoMessages), errors.Is(err, llm.ErrEmptyDraft):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apiclient.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, mediacache.ErrMiss):
		return http.StatusNotFound
	}
	if code := apiclient.StatusCode(err); code >= 400 && code < 500 {
		return code
	}
	return http.StatusBadGateway
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
