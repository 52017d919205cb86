// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/branchline-ai/conversation-tree/internal/store"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps service and store errors to HTTP responses.
// NotFound and InvalidOperation stay distinguishable so callers can
// decide retry-vs-abort.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrConversationNotFound),
		errors.Is(err, store.ErrMessageNotFound),
		errors.Is(err, store.ErrLeafNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrMainLeafProtected):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrVersionOutOfRange):
		writeError(w, http.StatusBadRequest, "Version index out of range")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
