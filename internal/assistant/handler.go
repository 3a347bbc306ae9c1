package assistant

import (
	"net/http"

	"github.com/peoplehub/peoplehub-backend/pkg/httputil"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
)

// Handler serves the assistant endpoints
type Handler struct {
	service *ChatService
	logger  *logger.Logger
}

// NewHandler creates a new assistant handler
func NewHandler(svc *ChatService, log *logger.Logger) *Handler {
	return &Handler{service: svc, logger: log}
}

// Chat answers one prompt
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	resp, err := h.service.Ask(r.Context(), &req)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// Health reports whether the model is reachable
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]bool{
		"enabled": h.service.Enabled(),
		"healthy": h.service.Healthy(r.Context()),
	})
}
