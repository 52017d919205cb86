package model

// EventType enumerates the wire events exchanged over a conversation's
// live session.
type EventType string

const (
	EventConnection     EventType = "connection"
	EventMessage        EventType = "message"
	EventMessageUpdated EventType = "message_updated"
	EventTyping         EventType = "typing"
	EventPresence       EventType = "presence"
	EventStartEditing   EventType = "start_editing"
	EventStopEditing    EventType = "stop_editing"
	EventEditingStarted EventType = "editing_started"
	EventEditingStopped EventType = "editing_stopped"
	EventCursor         EventType = "cursor"
	EventTextDelta      EventType = "text_delta"
	EventError          EventType = "error"
)

// ConnectionEvent confirms a newly accepted live session.
type ConnectionEvent struct {
	Type           EventType `json:"type"`
	Status         string    `json:"status"`
	ConversationID string    `json:"conversationId"`
	LeafID         string    `json:"leafId,omitempty"`
}

// MessageEvent carries a newly created or updated message to peers.
type MessageEvent struct {
	Type    EventType `json:"type"`
	Message Message   `json:"message"`
}

// PresenceAction is either "joined" or "left".
type PresenceAction string

const (
	PresenceJoined PresenceAction = "joined"
	PresenceLeft   PresenceAction = "left"
)

// PresenceEvent announces a connection joining or leaving a
// conversation.
type PresenceEvent struct {
	Type        EventType      `json:"type"`
	Action      PresenceAction `json:"action"`
	ActiveUsers int            `json:"activeUsers"`
}

// EditingEvent announces a user starting or stopping an editing session
// on a message.
type EditingEvent struct {
	Type      EventType `json:"type"`
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
}

// ErrorEvent reports a rejected inbound frame to its sender.
type ErrorEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}
