package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/branchline-ai/conversation-tree/internal/middleware"
	"github.com/branchline-ai/conversation-tree/internal/model"
	"github.com/branchline-ai/conversation-tree/internal/service"
	"github.com/branchline-ai/conversation-tree/pkg/logger"
)

// LeafHandler handles branching endpoints.
type LeafHandler struct {
	branches *service.BranchService
	logger   *logger.Logger
}

// NewLeafHandler creates a new leaf handler.
func NewLeafHandler(branches *service.BranchService, log *logger.Logger) *LeafHandler {
	return &LeafHandler{
		branches: branches,
		logger:   log,
	}
}

// List handles GET /v1/conversations/{id}/leaves
func (h *LeafHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.branches.ListLeaves(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /v1/conversations/{id}/leaves
func (h *LeafHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateLeafRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateLeafName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	leaf, err := h.branches.CreateLeaf(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, leaf)
}

// Active handles GET /v1/conversations/{id}/leaves/active
func (h *LeafHandler) Active(w http.ResponseWriter, r *http.Request) {
	leaf, err := h.branches.ActiveLeaf(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaf)
}

// Switch handles PUT /v1/conversations/{id}/leaves/active
func (h *LeafHandler) Switch(w http.ResponseWriter, r *http.Request) {
	var req model.SwitchLeafRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	leaf, err := h.branches.SwitchActiveLeaf(r.Context(), chi.URLParam(r, "id"), req.LeafID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SwitchLeafResponse{ActiveLeafID: leaf.ID})
}

// Delete handles DELETE /v1/conversations/{id}/leaves/{leafID}
func (h *LeafHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.branches.DeleteLeaf(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "leafID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
