// Package store provides the entity store for conversations, messages,
// participants, leaves and message versions.
package store

import (
	"context"

	"github.com/branchline-ai/conversation-tree/internal/model"
)

// Store is the repository contract the resolver and mutator operate
// against. Implementations must serialize writes per conversation:
// all mutations to a conversation's leaf set and active-leaf pointer
// are linearizable with respect to each other, and reads observe a
// consistent snapshot.
type Store interface {
	// CreateConversation persists the conversation together with its
	// participants, its main leaf (active, no branch point) and any
	// seed messages, as one atomic unit. Seed messages are tagged with
	// the main leaf's id. Returns the stored conversation.
	CreateConversation(ctx context.Context, conv model.Conversation) (model.Conversation, error)

	// GetConversation returns a conversation with participants and the
	// full canonical message sequence in creation order.
	GetConversation(ctx context.Context, conversationID string) (model.Conversation, error)

	// ListConversations returns all conversations without message
	// bodies, in creation order.
	ListConversations(ctx context.Context) ([]model.Conversation, error)

	// UpdateConversation applies the allowed field updates (title,
	// kind) and returns the updated conversation.
	UpdateConversation(ctx context.Context, conversationID string, req model.UpdateConversationRequest) (model.Conversation, error)

	// DeleteConversation removes the conversation and cascades to its
	// messages, participants, leaves and versions.
	DeleteConversation(ctx context.Context, conversationID string) error

	// AppendMessage appends a message to the conversation's canonical
	// sequence. The caller sets CreatedInLeafID.
	AppendMessage(ctx context.Context, msg model.Message) (model.Message, error)

	// GetMessage returns a single canonical message.
	GetMessage(ctx context.Context, conversationID, messageID string) (model.Message, error)

	// UpdateMessageContent mutates the canonical content of a message.
	UpdateMessageContent(ctx context.Context, conversationID, messageID, content string) (model.Message, error)

	// DeleteMessage removes a message and cascades to its versions.
	DeleteMessage(ctx context.Context, conversationID, messageID string) error

	// CreateLeaf persists a leaf.
	CreateLeaf(ctx context.Context, leaf model.Leaf) (model.Leaf, error)

	// ListLeaves returns a conversation's leaves in creation order.
	ListLeaves(ctx context.Context, conversationID string) ([]model.Leaf, error)

	// GetLeaf returns a leaf of the conversation by id.
	GetLeaf(ctx context.Context, conversationID, leafID string) (model.Leaf, error)

	// ActiveLeaf returns the single active leaf of the conversation.
	ActiveLeaf(ctx context.Context, conversationID string) (model.Leaf, error)

	// SetActiveLeaf atomically deactivates every leaf of the
	// conversation and activates the target. Fails with
	// ErrLeafNotFound when the target does not belong to the
	// conversation.
	SetActiveLeaf(ctx context.Context, conversationID, leafID string) error

	// DeleteLeaf removes a leaf and the versions that belong to it.
	// It never removes messages or other leaves and does not enforce
	// the main-leaf or active-leaf rules; that is mutator policy.
	DeleteLeaf(ctx context.Context, conversationID, leafID string) error

	// SetLeafVersion records a version override (message id -> stored
	// version index) on a leaf.
	SetLeafVersion(ctx context.Context, conversationID, leafID, messageID string, versionIndex int) error

	// AppendVersion stores a message version with the next sequential
	// version number for that message (starting at 0) and returns it.
	AppendVersion(ctx context.Context, v model.MessageVersion) (model.MessageVersion, error)

	// ListVersions returns a message's stored versions ordered by
	// version number.
	ListVersions(ctx context.Context, messageID string) ([]model.MessageVersion, error)

	// VersionAt returns the stored version of a message whose
	// VersionNumber equals index, or ErrVersionOutOfRange when no such
	// row exists.
	VersionAt(ctx context.Context, messageID string, index int) (model.MessageVersion, error)
}
