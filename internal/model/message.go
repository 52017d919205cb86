package model

import (
	"time"
)

// Message is a single conversation message. Content holds the canonical
// text; leaf-scoped alternates live in MessageVersion rows. CreatedInLeafID
// records the leaf that was active when the message was appended and is
// empty for seed messages that predate any leaf.
//
// LeafID is a display annotation only: responses that resolve a specific
// leaf view set it to the requested leaf so clients know which timeline
// the content belongs to. It is never persisted.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	AuthorID       string    `json:"author_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	CreatedInLeafID string   `json:"-"`
	LeafID         string    `json:"leaf_id,omitempty"`
}

// MessageVersion is a leaf-scoped alternate content for a message.
// VersionNumber is assigned sequentially per message starting at 0 for
// the first stored version; the canonical content is synthesized as
// version 0 of the merged view and stored numbers are shifted up by one
// there.
type MessageVersion struct {
	MessageID     string    `json:"-"`
	Content       string    `json:"content"`
	AuthorID      string    `json:"author_id,omitempty"`
	LeafID        string    `json:"leaf_id"`
	VersionNumber int       `json:"version_number"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// AppendMessageRequest is the request to append a message to the
// currently active leaf of a conversation.
type AppendMessageRequest struct {
	AuthorID string `json:"author_id"`
	Content  string `json:"content"`
}

// UpdateMessageRequest is the request to update a message. When LeafID
// is set, a new MessageVersion is appended under that leaf and the
// canonical content is left untouched; otherwise the canonical content
// is mutated directly.
type UpdateMessageRequest struct {
	Content string `json:"content"`
	LeafID  string `json:"leaf_id,omitempty"`
}

// ListMessagesResponse is the response for listing messages, optionally
// resolved against a leaf.
type ListMessagesResponse struct {
	Data []Message `json:"data"`
}

// VersionsResponse is the merged version list for a message: the
// canonical original at index 0 followed by stored versions in order.
// CurrentVersion is the index selected by the conversation's active
// leaf (0 when the active leaf carries no override for the message).
type VersionsResponse struct {
	Versions       []MessageVersion `json:"versions"`
	CurrentVersion int              `json:"current_version"`
}

// NavigateVersionRequest selects a version by index into the merged
// version list.
type NavigateVersionRequest struct {
	VersionIndex int `json:"version_index"`
}

// NavigateVersionResponse reports the selected version.
type NavigateVersionResponse struct {
	Content        string `json:"content"`
	CurrentVersion int    `json:"current_version"`
}

// PruneAfterRequest deletes every message strictly after the given one
// in a leaf's resolved view.
type PruneAfterRequest struct {
	LeafID         string `json:"leaf_id"`
	AfterMessageID string `json:"after_message_id"`
}

// EditorsResponse lists the users currently editing a message.
type EditorsResponse struct {
	Editors []string `json:"editors"`
}
