package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/branchline-ai/conversation-tree/internal/middleware"
	"github.com/branchline-ai/conversation-tree/internal/model"
	"github.com/branchline-ai/conversation-tree/internal/service"
	"github.com/branchline-ai/conversation-tree/internal/ws"
	"github.com/branchline-ai/conversation-tree/pkg/logger"
)

// MessageHandler handles message, version and editor endpoints.
type MessageHandler struct {
	branches *service.BranchService
	resolver *service.Resolver
	hub      *ws.Hub
	notifier *Notifier
	logger   *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(branches *service.BranchService, resolver *service.Resolver, hub *ws.Hub, notifier *Notifier, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		branches: branches,
		resolver: resolver,
		hub:      hub,
		notifier: notifier,
		logger:   log,
	}
}

// List handles GET /v1/conversations/{id}/messages. An optional
// leaf_id query parameter resolves the view for that leaf; without
// one, or with an unknown leaf, the full canonical history is
// returned.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	leafRef := r.URL.Query().Get("leaf_id")

	messages, err := h.resolver.Messages(r.Context(), conversationID, leafRef)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListMessagesResponse{Data: messages})
}

// Append handles POST /v1/conversations/{id}/messages
func (h *MessageHandler) Append(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	var req model.AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateAuthorID(req.AuthorID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.branches.AppendMessage(r.Context(), conversationID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.notifier.Publish(conversationID, string(model.EventMessage), model.MessageEvent{
		Type:    model.EventMessage,
		Message: msg,
	})
	writeJSON(w, http.StatusCreated, msg)
}

// Update handles PUT /v1/conversations/{id}/messages/{messageID}
func (h *MessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	messageID := chi.URLParam(r, "messageID")

	var req model.UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.branches.UpdateMessage(r.Context(), conversationID, messageID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.notifier.Publish(conversationID, string(model.EventMessageUpdated), model.MessageEvent{
		Type:    model.EventMessageUpdated,
		Message: msg,
	})
	writeJSON(w, http.StatusOK, msg)
}

// Delete handles DELETE /v1/conversations/{id}/messages/{messageID}
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	messageID := chi.URLParam(r, "messageID")

	if err := h.branches.DeleteMessage(r.Context(), conversationID, messageID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Versions handles GET /v1/conversations/{id}/messages/{messageID}/versions
func (h *MessageHandler) Versions(w http.ResponseWriter, r *http.Request) {
	resp, err := h.branches.Versions(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "messageID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Navigate handles PUT /v1/conversations/{id}/messages/{messageID}/version
func (h *MessageHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req model.NavigateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.branches.NavigateVersion(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "messageID"), req.VersionIndex)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Editors handles GET /v1/conversations/{id}/messages/{messageID}/editors
func (h *MessageHandler) Editors(w http.ResponseWriter, r *http.Request) {
	editors := h.hub.Editors(chi.URLParam(r, "id"), chi.URLParam(r, "messageID"))
	writeJSON(w, http.StatusOK, model.EditorsResponse{Editors: editors})
}

// Prune handles POST /v1/conversations/{id}/messages/prune
func (h *MessageHandler) Prune(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	var req model.PruneAfterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deleted, err := h.branches.PruneAfter(r.Context(), conversationID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}
