package handler

import (
	"net/http"

	"github.com/message-whisperer/agent-console/internal/middleware"
	"github.com/message-whisperer/agent-console/internal/preview"
)

// PreviewRequest is the body of POST /preview.
type PreviewRequest struct {
	Template string            `json:"template"`
	Values   map[string]string `json:"values,omitempty"`
}

// PreviewResponse shows a template as it would be sent.
type PreviewResponse struct {
	Rendered     string   `json:"rendered"`
	Sample       string   `json:"sample"`
	Placeholders []string `json:"placeholders"`
	Missing      []string `json:"missing"`
}

// Preview handles POST /api/v1/preview
func Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateTemplate(req.Template); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	missing := preview.Missing(req.Template, req.Values)
	if missing == nil {
		missing = []string{}
	}
	writeJSON(w, http.StatusOK, PreviewResponse{
		Rendered:     preview.Render(req.Template, req.Values),
		Sample:       preview.Sample(req.Template),
		Placeholders: preview.Placeholders(req.Template),
		Missing:      missing,
	})
}
