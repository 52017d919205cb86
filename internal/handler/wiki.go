package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/branchline-ai/conversation-tree/internal/middleware"
	"github.com/branchline-ai/conversation-tree/internal/service"
	"github.com/branchline-ai/conversation-tree/pkg/logger"
)

// WikiHandler serves wiki concept pages, which are conversations with
// deterministic ids derived from the concept name.
type WikiHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewWikiHandler creates a new wiki handler.
func NewWikiHandler(svc *service.ConversationService, log *logger.Logger) *WikiHandler {
	return &WikiHandler{
		service: svc,
		logger:  log,
	}
}

// GetOrCreate handles GET /v1/wiki/{concept}. The page is created on
// first access.
func (h *WikiHandler) GetOrCreate(w http.ResponseWriter, r *http.Request) {
	concept := chi.URLParam(r, "concept")
	if err := middleware.ValidateConcept(concept); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.GetOrCreateWiki(r.Context(), concept)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}
