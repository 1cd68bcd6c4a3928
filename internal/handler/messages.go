package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/message-whisperer/agent-console/internal/middleware"
	"github.com/message-whisperer/agent-console/internal/model"
	"github.com/message-whisperer/agent-console/pkg/logger"
)

// MessageHandler serves the open thread, sending, drafts and media.
type MessageHandler struct {
	console Console
	logger  *logger.Logger
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(console Console, log *logger.Logger) *MessageHandler {
	return &MessageHandler{console: console, logger: log}
}

// SendRequest is the body of POST /conversations/{id}/messages.
type SendRequest struct {
	Text string `json:"text"`
}

// DraftResponse carries a suggested reply.
type DraftResponse struct {
	ConversationID string `json:"conversation_id"`
	Draft          string `json:"draft"`
}

// Thread handles GET /api/v1/thread
func (h *MessageHandler) Thread(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.console.Thread())
}

// Send handles POST /api/v1/conversations/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	var req SendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.console.Send(r.Context(), id, req.Text)
	if err != nil {
		writeServiceError(w, "failed to send message", err)
		return
	}
	writeJSON(w, http.StatusCreated, model.SendMessageResponse{Message: &msg})
}

// Draft handles POST /api/v1/conversations/{id}/draft
func (h *MessageHandler) Draft(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	draft, err := h.console.SuggestReply(r.Context(), id)
	if err != nil {
		writeServiceError(w, "failed to draft a reply", err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{ConversationID: id, Draft: draft})
}

// Media handles GET /api/v1/media/{id}
func (h *MessageHandler) Media(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateMediaID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.console.Media(r.Context(), id)
	if err != nil {
		h.logger.Debug("media fetch failed", zap.String("media_id", id), zap.Error(err))
		writeServiceError(w, "failed to load media", err)
		return
	}

	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(res.Size()))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

// Notifications handles GET /api/v1/notifications?limit=N
func (h *MessageHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": h.console.Notifications(limit),
	})
}
