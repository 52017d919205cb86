// Package model defines data structures for the conversation tree platform.
package model

import (
	"time"
)

// ConversationKind distinguishes chat threads from wiki pages.
type ConversationKind string

const (
	KindChat ConversationKind = "chat"
	KindWiki ConversationKind = "wiki"
)

// ParticipantKind identifies whether a participant is a person or a model.
type ParticipantKind string

const (
	ParticipantHuman ParticipantKind = "human"
	ParticipantAI    ParticipantKind = "ai"
)

// Participant is a member of a conversation. Participants are immutable
// once created.
type Participant struct {
	ID   string          `json:"id"`
	Kind ParticipantKind `json:"type"`
	Name string          `json:"name"`
}

// Conversation is the top-level container of messages, participants and
// leaves. Messages are kept in canonical creation order, independent of
// any leaf.
type Conversation struct {
	ID           string           `json:"id"`
	Kind         ConversationKind `json:"type"`
	Title        string           `json:"title"`
	Participants []Participant    `json:"participants"`
	Messages     []Message        `json:"messages"`
	CreatedAt    time.Time        `json:"created_at"`
}

// CreateConversationRequest is the request to create a new conversation.
// ID is optional; one is generated when absent. Seed messages are tagged
// with the main leaf created alongside the conversation.
type CreateConversationRequest struct {
	ID           string           `json:"id,omitempty"`
	Kind         ConversationKind `json:"type"`
	Title        string           `json:"title"`
	Participants []Participant    `json:"participants"`
	Messages     []Message        `json:"messages"`
}

// UpdateConversationRequest is the request to update a conversation.
// Only title and kind may change.
type UpdateConversationRequest struct {
	Title string           `json:"title,omitempty"`
	Kind  ConversationKind `json:"type,omitempty"`
}

// ListConversationsResponse is the response for listing conversations.
// Message bodies are omitted from list views.
type ListConversationsResponse struct {
	Data []Conversation `json:"data"`
}
