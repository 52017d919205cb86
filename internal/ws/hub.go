// Package ws implements the live session layer: per-conversation
// connection registries, editing sessions and WebSocket transport.
package ws

import (
	"sync"

	"go.uber.org/zap"

	"github.com/branchline-ai/conversation-tree/pkg/logger"
	"github.com/branchline-ai/conversation-tree/pkg/metrics"
)

// Session is the outbound half of one live connection. Send must not
// block; an error marks the peer dead and the hub drops it.
type Session interface {
	Send(data []byte) error
	Close()
}

// Hub tracks open sessions and editing state per room. A room is a
// conversation id, or conversation/leaf for document relay. Broadcast
// is best effort: a failing session is pruned during the same pass and
// the failure is never surfaced to the caller.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[Session]struct{}
	editing  map[string]map[string]map[string]struct{}
	logger   *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[Session]struct{}),
		editing: make(map[string]map[string]map[string]struct{}),
		logger:  log,
	}
}

// Connect registers a session in a room and returns the room's
// resulting connection count.
func (h *Hub) Connect(room string, s Session) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.rooms[room]
	if !ok {
		sessions = make(map[Session]struct{})
		h.rooms[room] = sessions
	}
	sessions[s] = struct{}{}
	metrics.IncrementWSConnections()
	return len(sessions)
}

// Disconnect removes a session from a room and returns the remaining
// count. The room's entry is dropped entirely when it empties. Unknown
// sessions are ignored.
func (h *Hub) Disconnect(room string, s Session) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.rooms[room]
	if !ok {
		return 0
	}
	if _, present := sessions[s]; !present {
		return len(sessions)
	}
	delete(sessions, s)
	metrics.DecrementWSConnections()
	if len(sessions) == 0 {
		delete(h.rooms, room)
		delete(h.editing, room)
		return 0
	}
	return len(sessions)
}

// Count returns the number of open sessions in a room.
func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast sends data to every session in the room.
func (h *Hub) Broadcast(room string, eventType string, data []byte) {
	h.broadcast(room, eventType, data, nil)
}

// BroadcastExcept sends data to every session in the room except one,
// used for relay events so senders don't receive their own echo.
func (h *Hub) BroadcastExcept(room string, eventType string, data []byte, except Session) {
	h.broadcast(room, eventType, data, except)
}

func (h *Hub) broadcast(room, eventType string, data []byte, except Session) {
	h.mu.RLock()
	targets := make([]Session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		if s != except {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	var failed []Session
	for _, s := range targets {
		if err := s.Send(data); err != nil {
			failed = append(failed, s)
		}
	}
	metrics.WSBroadcastsTotal.WithLabelValues(eventType).Inc()

	// A send failure is an implicit disconnect.
	for _, s := range failed {
		metrics.WSDroppedSendsTotal.Inc()
		h.Disconnect(room, s)
		s.Close()
		h.logger.Debug("dropped unreachable session", zap.String("room", room))
	}
}

// StartEditing records a user as editing a message. Idempotent.
func (h *Hub) StartEditing(room, messageID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	byMessage, ok := h.editing[room]
	if !ok {
		byMessage = make(map[string]map[string]struct{})
		h.editing[room] = byMessage
	}
	editors, ok := byMessage[messageID]
	if !ok {
		editors = make(map[string]struct{})
		byMessage[messageID] = editors
	}
	editors[userID] = struct{}{}
}

// StopEditing removes a user's editing session for a message. A no-op
// when the user was not editing. The message's entry is dropped when
// its last editor leaves.
func (h *Hub) StopEditing(room, messageID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	editors, ok := h.editing[room][messageID]
	if !ok {
		return
	}
	delete(editors, userID)
	if len(editors) == 0 {
		delete(h.editing[room], messageID)
	}
}

// Editors returns the set of users currently editing a message, empty
// when none.
func (h *Hub) Editors(room, messageID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	editors := h.editing[room][messageID]
	out := make([]string, 0, len(editors))
	for userID := range editors {
		out = append(out, userID)
	}
	return out
}
