package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/branchline-ai/conversation-tree/internal/model"
	"github.com/branchline-ai/conversation-tree/internal/service"
	"github.com/branchline-ai/conversation-tree/pkg/logger"
)

// closeUnknownConversation is the close code sent when a client opens
// a socket against a conversation or leaf that does not exist.
const closeUnknownConversation = 4004

// inboundFrame is the one decoded shape for all client frames; the
// type field selects which other fields matter.
type inboundFrame struct {
	Type      model.EventType `json:"type"`
	AuthorID  string          `json:"authorId"`
	UserID    string          `json:"userId"`
	MessageID string          `json:"messageId"`
	Content   string          `json:"content"`
}

// Handler upgrades HTTP requests to live sessions and dispatches
// inbound frames.
type Handler struct {
	hub      *Hub
	convs    *service.ConversationService
	branches *service.BranchService
	logger   *logger.Logger
	upgrader websocket.Upgrader
	buffer   int
}

// NewHandler creates the WebSocket handler. bufferSize bounds each
// session's outbound queue.
func NewHandler(hub *Hub, convs *service.ConversationService, branches *service.BranchService, log *logger.Logger, bufferSize int) *Handler {
	return &Handler{
		hub:      hub,
		convs:    convs,
		branches: branches,
		logger:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		buffer: bufferSize,
	}
}

// Conversation handles GET /v1/conversations/{id}/ws.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn := NewConn(ws, h.buffer)

	if _, err := h.convs.Get(r.Context(), conversationID); err != nil {
		conn.CloseWithCode(closeUnknownConversation, "conversation not found")
		return
	}

	count := h.hub.Connect(conversationID, conn)
	h.sendEvent(conn, model.ConnectionEvent{
		Type:           model.EventConnection,
		Status:         "connected",
		ConversationID: conversationID,
	})

	// The first connection has no peers to notify.
	if count > 1 {
		h.broadcastEventExcept(conversationID, string(model.EventPresence), model.PresenceEvent{
			Type:        model.EventPresence,
			Action:      model.PresenceJoined,
			ActiveUsers: count,
		}, conn)
	}

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.route(r.Context(), conversationID, conn, data)
	}

	remaining := h.hub.Disconnect(conversationID, conn)
	conn.Close()
	if remaining > 0 {
		h.broadcastEvent(conversationID, string(model.EventPresence), model.PresenceEvent{
			Type:        model.EventPresence,
			Action:      model.PresenceLeft,
			ActiveUsers: remaining,
		})
	}
}

// LeafDocument handles GET /v1/conversations/{id}/leaves/{leafID}/ws,
// the per-leaf document relay. Frames are opaque to the server and
// forwarded to every other session on the same leaf.
func (h *Handler) LeafDocument(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	leafID := chi.URLParam(r, "leafID")

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn := NewConn(ws, h.buffer)

	if !h.leafExists(r.Context(), conversationID, leafID) {
		conn.CloseWithCode(closeUnknownConversation, "leaf not found")
		return
	}

	room := conversationID + "/" + leafID
	h.hub.Connect(room, conn)
	h.sendEvent(conn, model.ConnectionEvent{
		Type:           model.EventConnection,
		Status:         "connected",
		ConversationID: conversationID,
		LeafID:         leafID,
	})

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.hub.BroadcastExcept(room, frameType(data), data, conn)
	}

	h.hub.Disconnect(room, conn)
	conn.Close()
}

// route dispatches one inbound conversation frame.
func (h *Handler) route(ctx context.Context, conversationID string, conn *Conn, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.sendError(conn, "invalid frame")
		return
	}

	switch frame.Type {
	case model.EventMessage:
		h.handleMessage(ctx, conversationID, conn, frame)

	case model.EventTyping, model.EventCursor, model.EventTextDelta:
		// Relay as-is, excluding the sender.
		h.hub.BroadcastExcept(conversationID, string(frame.Type), raw, conn)

	case model.EventStartEditing:
		h.hub.StartEditing(conversationID, frame.MessageID, frame.UserID)
		h.broadcastEvent(conversationID, string(model.EventEditingStarted), model.EditingEvent{
			Type:      model.EventEditingStarted,
			MessageID: frame.MessageID,
			UserID:    frame.UserID,
		})

	case model.EventStopEditing:
		h.hub.StopEditing(conversationID, frame.MessageID, frame.UserID)
		h.broadcastEvent(conversationID, string(model.EventEditingStopped), model.EditingEvent{
			Type:      model.EventEditingStopped,
			MessageID: frame.MessageID,
			UserID:    frame.UserID,
		})

	default:
		h.sendError(conn, "invalid message type")
	}
}

// handleMessage validates and persists an inbound chat message, then
// fans it out to every session including the sender.
func (h *Handler) handleMessage(ctx context.Context, conversationID string, conn *Conn, frame inboundFrame) {
	if frame.Content == "" {
		h.sendError(conn, "content is required")
		return
	}

	conv, err := h.convs.Get(ctx, conversationID)
	if err != nil {
		h.sendError(conn, "conversation not found")
		return
	}
	if !isParticipant(conv, frame.AuthorID) {
		h.sendError(conn, "author is not a participant")
		return
	}

	msg, err := h.branches.AppendMessage(ctx, conversationID, model.AppendMessageRequest{
		AuthorID: frame.AuthorID,
		Content:  frame.Content,
	})
	if err != nil {
		h.logger.Error("failed to append message", zap.Error(err), zap.String("conversation_id", conversationID))
		h.sendError(conn, "failed to store message")
		return
	}

	h.broadcastEvent(conversationID, string(model.EventMessage), model.MessageEvent{
		Type:    model.EventMessage,
		Message: msg,
	})
}

func (h *Handler) leafExists(ctx context.Context, conversationID, leafID string) bool {
	resp, err := h.branches.ListLeaves(ctx, conversationID)
	if err != nil {
		return false
	}
	for _, l := range resp.Leaves {
		if l.ID == leafID {
			return true
		}
	}
	return false
}

func (h *Handler) sendEvent(conn *Conn, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	conn.Send(data)
}

func (h *Handler) sendError(conn *Conn, msg string) {
	h.sendEvent(conn, model.ErrorEvent{Type: model.EventError, Message: msg})
}

func (h *Handler) broadcastEvent(room, eventType string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.hub.Broadcast(room, eventType, data)
}

func (h *Handler) broadcastEventExcept(room, eventType string, event interface{}, except Session) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.hub.BroadcastExcept(room, eventType, data, except)
}

func frameType(raw []byte) string {
	var frame struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Type == "" {
		return "relay"
	}
	return frame.Type
}

func isParticipant(conv model.Conversation, authorID string) bool {
	for _, p := range conv.Participants {
		if p.ID == authorID {
			return true
		}
	}
	return false
}
