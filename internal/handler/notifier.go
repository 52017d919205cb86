package handler

import (
	"encoding/json"

	natsclient "github.com/branchline-ai/conversation-tree/internal/nats"
	"github.com/branchline-ai/conversation-tree/internal/ws"
)

// Notifier fans events produced by REST mutations out to a
// conversation's live sessions and, when configured, the JetStream
// mirror. Both paths are best effort.
type Notifier struct {
	hub    *ws.Hub
	mirror *natsclient.Mirror
}

// NewNotifier creates a notifier. mirror may be nil when event
// mirroring is disabled.
func NewNotifier(hub *ws.Hub, mirror *natsclient.Mirror) *Notifier {
	return &Notifier{hub: hub, mirror: mirror}
}

// Publish delivers one event to every session in the conversation's
// room and mirrors it.
func (n *Notifier) Publish(conversationID, eventType string, event interface{}) {
	if n == nil {
		return
	}
	if n.hub != nil {
		if data, err := json.Marshal(event); err == nil {
			n.hub.Broadcast(conversationID, eventType, data)
		}
	}
	if n.mirror != nil {
		n.mirror.Publish(conversationID, eventType, event)
	}
}
