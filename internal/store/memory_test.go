package store

import (
	"context"
	"errors"
	"testing"

	"github.com/branchline-ai/conversation-tree/internal/model"
)

func newConversation(t *testing.T, s *MemoryStore, seeds ...string) model.Conversation {
	t.Helper()
	req := model.Conversation{
		Kind:  model.KindChat,
		Title: "test",
		Participants: []model.Participant{
			{ID: "user-1", Kind: model.ParticipantHuman, Name: "User"},
			{ID: "ai-1", Kind: model.ParticipantAI, Name: "Assistant"},
		},
	}
	for _, content := range seeds {
		req.Messages = append(req.Messages, model.Message{AuthorID: "user-1", Content: content})
	}
	conv, err := s.CreateConversation(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	return conv
}

func TestCreateConversationCreatesMainLeaf(t *testing.T) {
	s := NewMemoryStore()
	conv := newConversation(t, s, "hello")

	leaves, err := s.ListLeaves(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("ListLeaves: %v", err)
	}
	if len(leaves) != 1 {
		t.Fatalf("expected 1 leaf, got %d", len(leaves))
	}
	if leaves[0].Name != model.MainLeafName {
		t.Errorf("leaf name = %q, want %q", leaves[0].Name, model.MainLeafName)
	}
	if !leaves[0].IsActive {
		t.Error("main leaf should be active")
	}

	got, err := s.GetConversation(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 seed message, got %d", len(got.Messages))
	}
	if got.Messages[0].CreatedInLeafID != leaves[0].ID {
		t.Errorf("seed message leaf = %q, want main %q", got.Messages[0].CreatedInLeafID, leaves[0].ID)
	}
}

func TestListConversationsOmitsMessages(t *testing.T) {
	s := NewMemoryStore()
	first := newConversation(t, s, "a", "b")
	second := newConversation(t, s)

	convs, err := s.ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ID != first.ID || convs[1].ID != second.ID {
		t.Errorf("creation order not preserved: %q, %q", convs[0].ID, convs[1].ID)
	}
	if len(convs[0].Messages) != 0 {
		t.Errorf("listing should omit message bodies, got %d", len(convs[0].Messages))
	}
}

func TestGetConversationNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetConversation(context.Background(), "missing")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestDeleteConversationCascades(t *testing.T) {
	s := NewMemoryStore()
	conv := newConversation(t, s, "hello")

	if err := s.DeleteConversation(context.Background(), conv.ID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if _, err := s.GetConversation(context.Background(), conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
	convs, _ := s.ListConversations(context.Background())
	if len(convs) != 0 {
		t.Errorf("expected empty list, got %d", len(convs))
	}
}

func TestAppendAndUpdateMessage(t *testing.T) {
	s := NewMemoryStore()
	conv := newConversation(t, s)

	msg, err := s.AppendMessage(context.Background(), model.Message{
		ConversationID: conv.ID,
		AuthorID:       "user-1",
		Content:        "hello",
	})
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("expected generated message id")
	}

	updated, err := s.UpdateMessageContent(context.Background(), conv.ID, msg.ID, "edited")
	if err != nil {
		t.Fatalf("UpdateMessageContent: %v", err)
	}
	if updated.Content != "edited" {
		t.Errorf("content = %q, want %q", updated.Content, "edited")
	}

	got, err := s.GetMessage(context.Background(), conv.ID, msg.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.Content != "edited" {
		t.Errorf("stored content = %q, want %q", got.Content, "edited")
	}
}

func TestSetActiveLeafFlipsExclusively(t *testing.T) {
	s := NewMemoryStore()
	conv := newConversation(t, s)
	ctx := context.Background()

	leaf, err := s.CreateLeaf(ctx, model.Leaf{ConversationID: conv.ID, Name: "alt"})
	if err != nil {
		t.Fatalf("CreateLeaf: %v", err)
	}
	if err := s.SetActiveLeaf(ctx, conv.ID, leaf.ID); err != nil {
		t.Fatalf("SetActiveLeaf: %v", err)
	}

	leaves, _ := s.ListLeaves(ctx, conv.ID)
	active := 0
	for _, l := range leaves {
		if l.IsActive {
			active++
			if l.ID != leaf.ID {
				t.Errorf("active leaf = %q, want %q", l.ID, leaf.ID)
			}
		}
	}
	if active != 1 {
		t.Errorf("expected exactly one active leaf, got %d", active)
	}

	if err := s.SetActiveLeaf(ctx, conv.ID, "leaf-missing"); !errors.Is(err, ErrLeafNotFound) {
		t.Errorf("err = %v, want ErrLeafNotFound", err)
	}
}

func TestAppendVersionNumbersSequentially(t *testing.T) {
	s := NewMemoryStore()
	conv := newConversation(t, s, "hello")
	ctx := context.Background()

	got, _ := s.GetConversation(ctx, conv.ID)
	msgID := got.Messages[0].ID

	for i := 0; i < 3; i++ {
		v, err := s.AppendVersion(ctx, model.MessageVersion{MessageID: msgID, Content: "v", LeafID: "leaf-x"})
		if err != nil {
			t.Fatalf("AppendVersion: %v", err)
		}
		if v.VersionNumber != i {
			t.Errorf("version number = %d, want %d", v.VersionNumber, i)
		}
	}

	versions, err := s.ListVersions(ctx, msgID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
}

func TestVersionAtMatchesStoredNumber(t *testing.T) {
	s := NewMemoryStore()
	conv := newConversation(t, s, "hello")
	ctx := context.Background()

	got, _ := s.GetConversation(ctx, conv.ID)
	msgID := got.Messages[0].ID

	s.AppendVersion(ctx, model.MessageVersion{MessageID: msgID, Content: "kept", LeafID: "leaf-keep"})
	s.AppendVersion(ctx, model.MessageVersion{MessageID: msgID, Content: "doomed", LeafID: "leaf-doomed"})
	s.AppendVersion(ctx, model.MessageVersion{MessageID: msgID, Content: "survivor", LeafID: "leaf-keep"})

	doomed, err := s.CreateLeaf(ctx, model.Leaf{ConversationID: conv.ID, Name: "doomed"})
	if err != nil {
		t.Fatalf("CreateLeaf: %v", err)
	}
	// Re-key the middle version to the real leaf id so DeleteLeaf
	// sweeps it.
	st := s.convs[conv.ID]
	st.versions[msgID][1].LeafID = doomed.ID

	if err := s.DeleteLeaf(ctx, conv.ID, doomed.ID); err != nil {
		t.Fatalf("DeleteLeaf: %v", err)
	}

	// Surviving version numbers must not shift.
	v, err := s.VersionAt(ctx, msgID, 2)
	if err != nil {
		t.Fatalf("VersionAt(2): %v", err)
	}
	if v.Content != "survivor" {
		t.Errorf("content = %q, want %q", v.Content, "survivor")
	}
	if _, err := s.VersionAt(ctx, msgID, 1); !errors.Is(err, ErrVersionOutOfRange) {
		t.Errorf("err = %v, want ErrVersionOutOfRange for swept index", err)
	}
}

func TestDeleteMessageRemovesVersions(t *testing.T) {
	s := NewMemoryStore()
	conv := newConversation(t, s, "hello")
	ctx := context.Background()

	got, _ := s.GetConversation(ctx, conv.ID)
	msgID := got.Messages[0].ID
	s.AppendVersion(ctx, model.MessageVersion{MessageID: msgID, Content: "v0", LeafID: "leaf-x"})

	if err := s.DeleteMessage(ctx, conv.ID, msgID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if _, err := s.GetMessage(ctx, conv.ID, msgID); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("err = %v, want ErrMessageNotFound", err)
	}
	if _, err := s.ListVersions(ctx, msgID); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("err = %v, want ErrMessageNotFound for versions of deleted message", err)
	}
}

func TestSetLeafVersion(t *testing.T) {
	s := NewMemoryStore()
	conv := newConversation(t, s, "hello")
	ctx := context.Background()

	got, _ := s.GetConversation(ctx, conv.ID)
	msgID := got.Messages[0].ID

	leaf, _ := s.CreateLeaf(ctx, model.Leaf{ConversationID: conv.ID, Name: "alt"})
	if err := s.SetLeafVersion(ctx, conv.ID, leaf.ID, msgID, 0); err != nil {
		t.Fatalf("SetLeafVersion: %v", err)
	}

	fresh, err := s.GetLeaf(ctx, conv.ID, leaf.ID)
	if err != nil {
		t.Fatalf("GetLeaf: %v", err)
	}
	if idx, ok := fresh.MessageVersions[msgID]; !ok || idx != 0 {
		t.Errorf("override = %d (present=%v), want 0", idx, ok)
	}

	// Returned leaves are copies; mutating them must not leak into the
	// store.
	fresh.MessageVersions[msgID] = 99
	again, _ := s.GetLeaf(ctx, conv.ID, leaf.ID)
	if again.MessageVersions[msgID] != 0 {
		t.Error("store leaked internal override map to caller")
	}
}
