package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/message-whisperer/agent-console/internal/middleware"
	"github.com/message-whisperer/agent-console/internal/model"
	"github.com/message-whisperer/agent-console/pkg/logger"
)

// ConversationHandler serves the conversation queue and its mutations.
type ConversationHandler struct {
	console Console
	logger  *logger.Logger
}

// NewConversationHandler creates a conversation handler.
func NewConversationHandler(console Console, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{console: console, logger: log}
}

// FilterRequest is the body of PUT /filter.
type FilterRequest struct {
	Filter string `json:"filter"`
}

// TenantRequest is the body of PUT /tenant.
type TenantRequest struct {
	BusinessID string `json:"business_id"`
}

// SelectionRequest is the body of PUT /selection. An empty id clears it.
type SelectionRequest struct {
	ConversationID string `json:"conversation_id"`
}

// AssignRequest is the body of POST /conversations/{id}/assign. An empty
// agent id assigns the session's own agent.
type AssignRequest struct {
	AgentID string `json:"agent_id"`
}

// ToggleAIRequest is the body of PATCH /conversations/{id}/ai.
type ToggleAIRequest struct {
	Enabled *bool `json:"enabled"`
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.console.Conversations())
}

// Refresh handles POST /api/v1/conversations/refresh
func (h *ConversationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.console.Refresh(r.Context()); err != nil {
		writeServiceError(w, "failed to load conversations", err)
		return
	}
	writeJSON(w, http.StatusOK, h.console.Conversations())
}

// LoadMore handles POST /api/v1/conversations/more
func (h *ConversationHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	loaded, err := h.console.LoadMore(r.Context())
	if err != nil {
		writeServiceError(w, "failed to load more conversations", err)
		return
	}
	state := h.console.Conversations()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loaded":        loaded,
		"conversations": state.Conversations,
		"has_more":      state.HasMore,
	})
}

// SetFilter handles PUT /api/v1/filter
func (h *ConversationHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	filter, ok := model.ParseFilter(req.Filter)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown filter")
		return
	}

	if err := h.console.SetFilter(r.Context(), filter); err != nil {
		writeServiceError(w, "failed to load conversations", err)
		return
	}
	writeJSON(w, http.StatusOK, h.console.Conversations())
}

// SetTenant handles PUT /api/v1/tenant
func (h *ConversationHandler) SetTenant(w http.ResponseWriter, r *http.Request) {
	var req TenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateBusinessID(req.BusinessID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.console.SwitchTenant(r.Context(), req.BusinessID); err != nil {
		writeServiceError(w, "failed to switch business", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"business_id":   h.console.BusinessID(),
		"conversations": h.console.Conversations(),
	})
}

// Select handles PUT /api/v1/selection
func (h *ConversationHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := h.console.Select(req.ConversationID); err != nil {
		writeServiceError(w, "failed to select conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, h.console.Thread())
}

// Agents handles GET /api/v1/agents
func (h *ConversationHandler) Agents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.console.Agents(r.Context())
	if err != nil {
		writeServiceError(w, "failed to list agents", err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListAgentsResponse{Agents: agents})
}

// Assign handles POST /api/v1/conversations/{id}/assign
func (h *ConversationHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	var req AssignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.console.Assign(r.Context(), id, req.AgentID); err != nil {
		writeServiceError(w, "failed to assign conversation", err)
		return
	}
	h.writeSummary(w, id)
}

// Resolve handles PUT /api/v1/conversations/{id}/resolve
func (h *ConversationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	if err := h.console.Resolve(r.Context(), id); err != nil {
		writeServiceError(w, "failed to resolve conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, h.console.Conversations())
}

// ToggleAI handles PATCH /api/v1/conversations/{id}/ai
func (h *ConversationHandler) ToggleAI(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	var req ToggleAIRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	if err := h.console.ToggleAI(r.Context(), id, *req.Enabled); err != nil {
		writeServiceError(w, "failed to update AI handling", err)
		return
	}
	h.writeSummary(w, id)
}

// writeSummary answers with the current summary of id, or the whole queue
// if it is no longer visible.
func (h *ConversationHandler) writeSummary(w http.ResponseWriter, id string) {
	state := h.console.Conversations()
	for _, c := range state.Conversations {
		if c.ID == id {
			writeJSON(w, http.StatusOK, c)
			return
		}
	}
	writeJSON(w, http.StatusOK, state)
}

func conversationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}
