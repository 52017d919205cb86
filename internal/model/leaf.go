package model

import (
	"time"
)

// MainLeafName is the reserved name of the root leaf every conversation
// is created with. The main leaf has no branch point and cannot be
// deleted.
const MainLeafName = "main"

// Leaf is a named, independently addressable timeline of a conversation.
// BranchPointMessageID is the message at which the leaf diverged from
// shared history; empty means the leaf inherits the full history.
//
// MessageVersions maps message id to an index into that message's stored
// version list (0-based, stored versions only). The index is a versioned
// pointer: it stays valid only as long as no version row for the message
// is removed, which is why no version-deletion operation is exposed.
type Leaf struct {
	ID                   string         `json:"id"`
	ConversationID       string         `json:"conversation_id"`
	Name                 string         `json:"name"`
	BranchPointMessageID string         `json:"branch_point_message_id,omitempty"`
	MessageVersions      map[string]int `json:"message_versions"`
	IsActive             bool           `json:"is_active"`
	CreatedAt            time.Time      `json:"created_at"`
}

// CreateLeafRequest is the request to branch a conversation at a
// message. NewContent optionally seeds the new leaf with an edited
// version of the branch-point message (copy-on-write).
type CreateLeafRequest struct {
	BranchFromMessageID string `json:"branch_from_message_id"`
	Name                string `json:"name"`
	NewContent          string `json:"new_content,omitempty"`
}

// SwitchLeafRequest selects the active leaf of a conversation.
type SwitchLeafRequest struct {
	LeafID string `json:"leaf_id"`
}

// ListLeavesResponse lists a conversation's leaves in creation order
// together with the id of the currently active leaf.
type ListLeavesResponse struct {
	Leaves       []Leaf `json:"leaves"`
	ActiveLeafID string `json:"active_leaf_id"`
}

// SwitchLeafResponse acknowledges an active-leaf switch.
type SwitchLeafResponse struct {
	ActiveLeafID string `json:"active_leaf_id"`
}
