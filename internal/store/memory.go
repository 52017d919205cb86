package store

import (
	"context"
	"sync"
	"time"

	"github.com/branchline-ai/conversation-tree/internal/model"
)

// MemoryStore is the in-process Store implementation. A single RWMutex
// guards all state, which trivially satisfies the per-conversation
// write-serialization contract; critical sections are map and slice
// mutations only and never span I/O.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	convs map[string]*conversationState
}

type conversationState struct {
	conv     model.Conversation
	messages []model.Message
	leaves   []model.Leaf
	versions map[string][]model.MessageVersion
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]*conversationState)}
}

var _ Store = (*MemoryStore)(nil)

// CreateConversation implements Store. The conversation, its
// participants, its main leaf and any seed messages are installed under
// one lock acquisition, so no reader ever observes a conversation
// without an active main leaf.
func (s *MemoryStore) CreateConversation(ctx context.Context, conv model.Conversation) (model.Conversation, error) {
	now := time.Now()
	if conv.ID == "" {
		conv.ID = model.NewID()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}

	main := model.Leaf{
		ID:              model.NewLeafID(),
		ConversationID:  conv.ID,
		Name:            model.MainLeafName,
		MessageVersions: map[string]int{},
		IsActive:        true,
		CreatedAt:       now,
	}

	st := &conversationState{
		leaves:   []model.Leaf{main},
		versions: make(map[string][]model.MessageVersion),
	}

	for i := range conv.Messages {
		msg := conv.Messages[i]
		if msg.ID == "" {
			msg.ID = model.NewID()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		msg.ConversationID = conv.ID
		msg.CreatedInLeafID = main.ID
		st.messages = append(st.messages, msg)
	}

	seeds := st.messages
	conv.Messages = nil
	st.conv = conv

	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID] = st
	s.order = append(s.order, conv.ID)

	conv.Messages = copyMessages(seeds)
	return conv, nil
}

// GetConversation implements Store.
func (s *MemoryStore) GetConversation(ctx context.Context, conversationID string) (model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.convs[conversationID]
	if !ok {
		return model.Conversation{}, ErrConversationNotFound
	}
	conv := st.conv
	conv.Participants = append([]model.Participant(nil), st.conv.Participants...)
	conv.Messages = copyMessages(st.messages)
	return conv, nil
}

// ListConversations implements Store.
func (s *MemoryStore) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Conversation, 0, len(s.order))
	for _, id := range s.order {
		st := s.convs[id]
		conv := st.conv
		conv.Participants = append([]model.Participant(nil), st.conv.Participants...)
		conv.Messages = []model.Message{}
		out = append(out, conv)
	}
	return out, nil
}

// UpdateConversation implements Store.
func (s *MemoryStore) UpdateConversation(ctx context.Context, conversationID string, req model.UpdateConversationRequest) (model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.convs[conversationID]
	if !ok {
		return model.Conversation{}, ErrConversationNotFound
	}
	if req.Title != "" {
		st.conv.Title = req.Title
	}
	if req.Kind != "" {
		st.conv.Kind = req.Kind
	}
	conv := st.conv
	conv.Participants = append([]model.Participant(nil), st.conv.Participants...)
	conv.Messages = copyMessages(st.messages)
	return conv, nil
}

// DeleteConversation implements Store.
func (s *MemoryStore) DeleteConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[conversationID]; !ok {
		return ErrConversationNotFound
	}
	delete(s.convs, conversationID)
	for i, id := range s.order {
		if id == conversationID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// AppendMessage implements Store.
func (s *MemoryStore) AppendMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	if msg.ID == "" {
		msg.ID = model.NewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.convs[msg.ConversationID]
	if !ok {
		return model.Message{}, ErrConversationNotFound
	}
	st.messages = append(st.messages, msg)
	return msg, nil
}

// GetMessage implements Store.
func (s *MemoryStore) GetMessage(ctx context.Context, conversationID, messageID string) (model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.convs[conversationID]
	if !ok {
		return model.Message{}, ErrConversationNotFound
	}
	for _, m := range st.messages {
		if m.ID == messageID {
			return m, nil
		}
	}
	return model.Message{}, ErrMessageNotFound
}

// UpdateMessageContent implements Store.
func (s *MemoryStore) UpdateMessageContent(ctx context.Context, conversationID, messageID, content string) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.convs[conversationID]
	if !ok {
		return model.Message{}, ErrConversationNotFound
	}
	for i := range st.messages {
		if st.messages[i].ID == messageID {
			st.messages[i].Content = content
			return st.messages[i], nil
		}
	}
	return model.Message{}, ErrMessageNotFound
}

// DeleteMessage implements Store. The message's stored versions are
// removed with it; leaf override maps may retain dangling indices,
// which resolvers tolerate by falling back to canonical content.
func (s *MemoryStore) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.convs[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	for i := range st.messages {
		if st.messages[i].ID == messageID {
			st.messages = append(st.messages[:i], st.messages[i+1:]...)
			delete(st.versions, messageID)
			return nil
		}
	}
	return ErrMessageNotFound
}

// CreateLeaf implements Store.
func (s *MemoryStore) CreateLeaf(ctx context.Context, leaf model.Leaf) (model.Leaf, error) {
	if leaf.ID == "" {
		leaf.ID = model.NewLeafID()
	}
	if leaf.CreatedAt.IsZero() {
		leaf.CreatedAt = time.Now()
	}
	if leaf.MessageVersions == nil {
		leaf.MessageVersions = map[string]int{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.convs[leaf.ConversationID]
	if !ok {
		return model.Leaf{}, ErrConversationNotFound
	}
	st.leaves = append(st.leaves, leaf)
	return copyLeaf(leaf), nil
}

// ListLeaves implements Store.
func (s *MemoryStore) ListLeaves(ctx context.Context, conversationID string) ([]model.Leaf, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.convs[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	out := make([]model.Leaf, 0, len(st.leaves))
	for _, l := range st.leaves {
		out = append(out, copyLeaf(l))
	}
	return out, nil
}

// GetLeaf implements Store.
func (s *MemoryStore) GetLeaf(ctx context.Context, conversationID, leafID string) (model.Leaf, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.convs[conversationID]
	if !ok {
		return model.Leaf{}, ErrConversationNotFound
	}
	for _, l := range st.leaves {
		if l.ID == leafID {
			return copyLeaf(l), nil
		}
	}
	return model.Leaf{}, ErrLeafNotFound
}

// ActiveLeaf implements Store.
func (s *MemoryStore) ActiveLeaf(ctx context.Context, conversationID string) (model.Leaf, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.convs[conversationID]
	if !ok {
		return model.Leaf{}, ErrConversationNotFound
	}
	for _, l := range st.leaves {
		if l.IsActive {
			return copyLeaf(l), nil
		}
	}
	return model.Leaf{}, ErrLeafNotFound
}

// SetActiveLeaf implements Store. The flip happens under one lock
// acquisition so there is never a moment with zero or two active
// leaves.
func (s *MemoryStore) SetActiveLeaf(ctx context.Context, conversationID, leafID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.convs[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	found := false
	for i := range st.leaves {
		if st.leaves[i].ID == leafID {
			found = true
		}
	}
	if !found {
		return ErrLeafNotFound
	}
	for i := range st.leaves {
		st.leaves[i].IsActive = st.leaves[i].ID == leafID
	}
	return nil
}

// DeleteLeaf implements Store.
func (s *MemoryStore) DeleteLeaf(ctx context.Context, conversationID, leafID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.convs[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	idx := -1
	for i := range st.leaves {
		if st.leaves[i].ID == leafID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrLeafNotFound
	}
	st.leaves = append(st.leaves[:idx], st.leaves[idx+1:]...)

	// Drop the leaf's versions. Version numbers of surviving rows are
	// untouched, so other leaves' index pointers stay valid.
	for msgID, versions := range st.versions {
		kept := versions[:0]
		for _, v := range versions {
			if v.LeafID != leafID {
				kept = append(kept, v)
			}
		}
		st.versions[msgID] = kept
	}
	return nil
}

// SetLeafVersion implements Store.
func (s *MemoryStore) SetLeafVersion(ctx context.Context, conversationID, leafID, messageID string, versionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.convs[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	for i := range st.leaves {
		if st.leaves[i].ID == leafID {
			if st.leaves[i].MessageVersions == nil {
				st.leaves[i].MessageVersions = map[string]int{}
			}
			st.leaves[i].MessageVersions[messageID] = versionIndex
			return nil
		}
	}
	return ErrLeafNotFound
}

// AppendVersion implements Store. The version number is the count of
// versions already stored for the message, matching the index scheme
// leaf override maps point into.
func (s *MemoryStore) AppendVersion(ctx context.Context, v model.MessageVersion) (model.MessageVersion, error) {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateForMessage(v.MessageID)
	if st == nil {
		return model.MessageVersion{}, ErrMessageNotFound
	}
	v.VersionNumber = len(st.versions[v.MessageID])
	st.versions[v.MessageID] = append(st.versions[v.MessageID], v)
	return v, nil
}

// ListVersions implements Store.
func (s *MemoryStore) ListVersions(ctx context.Context, messageID string) ([]model.MessageVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.stateForMessage(messageID)
	if st == nil {
		return nil, ErrMessageNotFound
	}
	return append([]model.MessageVersion(nil), st.versions[messageID]...), nil
}

// VersionAt implements Store. Lookup is by stored version number, not
// slice position, so gaps left by deleted leaves do not shift indices.
func (s *MemoryStore) VersionAt(ctx context.Context, messageID string, index int) (model.MessageVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.stateForMessage(messageID)
	if st == nil {
		return model.MessageVersion{}, ErrMessageNotFound
	}
	for _, v := range st.versions[messageID] {
		if v.VersionNumber == index {
			return v, nil
		}
	}
	return model.MessageVersion{}, ErrVersionOutOfRange
}

// stateForMessage finds the conversation state owning a message id.
// Callers must hold the lock.
func (s *MemoryStore) stateForMessage(messageID string) *conversationState {
	for _, st := range s.convs {
		for _, m := range st.messages {
			if m.ID == messageID {
				return st
			}
		}
	}
	return nil
}

func copyMessages(in []model.Message) []model.Message {
	out := make([]model.Message, len(in))
	copy(out, in)
	return out
}

func copyLeaf(l model.Leaf) model.Leaf {
	mv := make(map[string]int, len(l.MessageVersions))
	for k, v := range l.MessageVersions {
		mv[k] = v
	}
	l.MessageVersions = mv
	return l
}
