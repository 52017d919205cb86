package service

import (
	"context"
	"errors"
	"testing"

	"github.com/branchline-ai/conversation-tree/internal/model"
	"github.com/branchline-ai/conversation-tree/internal/store"
	"github.com/branchline-ai/conversation-tree/pkg/logger"
)

type fixture struct {
	store    *store.MemoryStore
	convs    *ConversationService
	resolver *Resolver
	branches *BranchService
}

func newFixture() *fixture {
	st := store.NewMemoryStore()
	log := logger.NewNop()
	resolver := NewResolver(st)
	return &fixture{
		store:    st,
		convs:    NewConversationService(st, log),
		resolver: resolver,
		branches: NewBranchService(st, resolver, log),
	}
}

// seedConversation creates a chat with three canonical messages, the
// standard starting point for branching tests.
func seedConversation(t *testing.T, f *fixture) (model.Conversation, []model.Message) {
	t.Helper()
	conv, err := f.convs.Create(context.Background(), model.CreateConversationRequest{
		Title: "branching",
		Participants: []model.Participant{
			{ID: "user-1", Kind: model.ParticipantHuman, Name: "User"},
			{ID: "ai-1", Kind: model.ParticipantAI, Name: "Assistant"},
		},
		Messages: []model.Message{
			{AuthorID: "user-1", Content: "Hello AI"},
			{AuthorID: "ai-1", Content: "Hi! How can I help?"},
			{AuthorID: "user-1", Content: "Tell me about Python"},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	full, err := f.convs.Get(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return full, full.Messages
}

func TestAppendMessageTagsActiveLeaf(t *testing.T) {
	f := newFixture()
	conv, msgs := seedConversation(t, f)
	ctx := context.Background()

	alt, err := f.branches.CreateLeaf(ctx, conv.ID, model.CreateLeafRequest{
		BranchFromMessageID: msgs[1].ID,
		Name:                "alt",
	})
	if err != nil {
		t.Fatalf("CreateLeaf: %v", err)
	}
	if _, err := f.branches.SwitchActiveLeaf(ctx, conv.ID, alt.ID); err != nil {
		t.Fatalf("SwitchActiveLeaf: %v", err)
	}

	msg, err := f.branches.AppendMessage(ctx, conv.ID, model.AppendMessageRequest{
		AuthorID: "user-1",
		Content:  "only on alt",
	})
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if msg.LeafID != alt.ID {
		t.Errorf("message leaf = %q, want %q", msg.LeafID, alt.ID)
	}

	mainView, err := f.resolver.Messages(ctx, conv.ID, model.MainLeafName)
	if err != nil {
		t.Fatalf("resolve main: %v", err)
	}
	for _, m := range mainView {
		if m.ID == msg.ID {
			t.Error("main view should not include a message created on alt")
		}
	}

	altView, err := f.resolver.Messages(ctx, conv.ID, alt.ID)
	if err != nil {
		t.Fatalf("resolve alt: %v", err)
	}
	found := false
	for _, m := range altView {
		if m.ID == msg.ID {
			found = true
		}
	}
	if !found {
		t.Error("alt view should include the appended message")
	}
}

func TestAppendMessageUnknownConversation(t *testing.T) {
	f := newFixture()
	_, err := f.branches.AppendMessage(context.Background(), "missing", model.AppendMessageRequest{
		AuthorID: "user-1",
		Content:  "hello",
	})
	if !errors.Is(err, store.ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestBranchFromMessageWithNewContent(t *testing.T) {
	f := newFixture()
	conv, msgs := seedConversation(t, f)
	ctx := context.Background()

	alt, err := f.branches.CreateLeaf(ctx, conv.ID, model.CreateLeafRequest{
		BranchFromMessageID: msgs[1].ID,
		Name:                "alt",
		NewContent:          "Greetings!",
	})
	if err != nil {
		t.Fatalf("CreateLeaf: %v", err)
	}
	if idx, ok := alt.MessageVersions[msgs[1].ID]; !ok || idx != 0 {
		t.Errorf("override = %d (present=%v), want stored index 0", idx, ok)
	}

	// Branching never mutates canonical content.
	canonical, _ := f.store.GetMessage(ctx, conv.ID, msgs[1].ID)
	if canonical.Content != "Hi! How can I help?" {
		t.Errorf("canonical content changed to %q", canonical.Content)
	}

	view, err := f.resolver.Messages(ctx, conv.ID, alt.ID)
	if err != nil {
		t.Fatalf("resolve alt: %v", err)
	}
	if len(view) != 2 {
		t.Fatalf("alt view length = %d, want 2", len(view))
	}
	if view[0].Content != "Hello AI" {
		t.Errorf("view[0] = %q, want %q", view[0].Content, "Hello AI")
	}
	if view[1].Content != "Greetings!" {
		t.Errorf("view[1] = %q, want %q", view[1].Content, "Greetings!")
	}
	for _, m := range view {
		if m.LeafID != alt.ID {
			t.Errorf("message %s annotated with leaf %q, want %q", m.ID, m.LeafID, alt.ID)
		}
	}

	// Creating a leaf never changes the active leaf.
	active, _ := f.branches.ActiveLeaf(ctx, conv.ID)
	if active.Name != model.MainLeafName {
		t.Errorf("active leaf = %q, want main", active.Name)
	}
}

func TestMergedVersionsAfterBranch(t *testing.T) {
	f := newFixture()
	conv, msgs := seedConversation(t, f)
	ctx := context.Background()

	alt, err := f.branches.CreateLeaf(ctx, conv.ID, model.CreateLeafRequest{
		BranchFromMessageID: msgs[1].ID,
		Name:                "alt",
		NewContent:          "Greetings!",
	})
	if err != nil {
		t.Fatalf("CreateLeaf: %v", err)
	}

	resp, err := f.branches.Versions(ctx, conv.ID, msgs[1].ID)
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(resp.Versions) != 2 {
		t.Fatalf("merged length = %d, want 2", len(resp.Versions))
	}
	if resp.Versions[0].Content != "Hi! How can I help?" || resp.Versions[0].VersionNumber != 0 || resp.Versions[0].LeafID != model.MainLeafName {
		t.Errorf("version 0 = %+v", resp.Versions[0])
	}
	if resp.Versions[1].Content != "Greetings!" || resp.Versions[1].VersionNumber != 1 || resp.Versions[1].LeafID != alt.ID {
		t.Errorf("version 1 = %+v", resp.Versions[1])
	}
	if resp.CurrentVersion != 0 {
		t.Errorf("current version under main = %d, want 0", resp.CurrentVersion)
	}

	if _, err := f.branches.SwitchActiveLeaf(ctx, conv.ID, alt.ID); err != nil {
		t.Fatalf("SwitchActiveLeaf: %v", err)
	}
	resp, err = f.branches.Versions(ctx, conv.ID, msgs[1].ID)
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if resp.CurrentVersion != 1 {
		t.Errorf("current version under alt = %d, want 1", resp.CurrentVersion)
	}
}

func TestNavigateVersionSwitchesLeaf(t *testing.T) {
	f := newFixture()
	conv, msgs := seedConversation(t, f)
	ctx := context.Background()

	alt, err := f.branches.CreateLeaf(ctx, conv.ID, model.CreateLeafRequest{
		BranchFromMessageID: msgs[1].ID,
		Name:                "alt",
		NewContent:          "Greetings!",
	})
	if err != nil {
		t.Fatalf("CreateLeaf: %v", err)
	}

	resp, err := f.branches.NavigateVersion(ctx, conv.ID, msgs[1].ID, 1)
	if err != nil {
		t.Fatalf("NavigateVersion: %v", err)
	}
	if resp.Content != "Greetings!" {
		t.Errorf("content = %q, want %q", resp.Content, "Greetings!")
	}
	if resp.CurrentVersion != 1 {
		t.Errorf("current version = %d, want 1", resp.CurrentVersion)
	}

	active, _ := f.branches.ActiveLeaf(ctx, conv.ID)
	if active.ID != alt.ID {
		t.Errorf("active leaf = %q, want %q", active.ID, alt.ID)
	}

	// Index 0 selects the canonical original and leaves the active
	// leaf alone.
	resp, err = f.branches.NavigateVersion(ctx, conv.ID, msgs[1].ID, 0)
	if err != nil {
		t.Fatalf("NavigateVersion(0): %v", err)
	}
	if resp.Content != "Hi! How can I help?" {
		t.Errorf("content = %q, want canonical", resp.Content)
	}
	active, _ = f.branches.ActiveLeaf(ctx, conv.ID)
	if active.ID != alt.ID {
		t.Errorf("active leaf changed on navigate to 0")
	}
}

func TestNavigateVersionOutOfRange(t *testing.T) {
	f := newFixture()
	conv, msgs := seedConversation(t, f)
	ctx := context.Background()

	_, err := f.branches.NavigateVersion(ctx, conv.ID, msgs[1].ID, 5)
	if !errors.Is(err, store.ErrVersionOutOfRange) {
		t.Fatalf("err = %v, want ErrVersionOutOfRange", err)
	}

	active, _ := f.branches.ActiveLeaf(ctx, conv.ID)
	if active.Name != model.MainLeafName {
		t.Errorf("active leaf = %q, should be unchanged main", active.Name)
	}
}

func TestUpdateMessageVersioned(t *testing.T) {
	f := newFixture()
	conv, msgs := seedConversation(t, f)
	ctx := context.Background()

	alt, err := f.branches.CreateLeaf(ctx, conv.ID, model.CreateLeafRequest{
		BranchFromMessageID: msgs[1].ID,
		Name:                "alt",
	})
	if err != nil {
		t.Fatalf("CreateLeaf: %v", err)
	}

	updated, err := f.branches.UpdateMessage(ctx, conv.ID, msgs[1].ID, model.UpdateMessageRequest{
		Content: "Greetings! What can I do for you?",
		LeafID:  alt.ID,
	})
	if err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}
	if updated.Content != "Greetings! What can I do for you?" {
		t.Errorf("returned content = %q", updated.Content)
	}

	// Canonical content untouched.
	canonical, _ := f.store.GetMessage(ctx, conv.ID, msgs[1].ID)
	if canonical.Content != "Hi! How can I help?" {
		t.Errorf("canonical content changed to %q", canonical.Content)
	}

	resp, _ := f.branches.Versions(ctx, conv.ID, msgs[1].ID)
	if len(resp.Versions) != 2 {
		t.Fatalf("merged length = %d, want 2", len(resp.Versions))
	}
	if resp.Versions[1].Content != "Greetings! What can I do for you?" {
		t.Errorf("version 1 = %q", resp.Versions[1].Content)
	}
}

func TestUpdateMessageCanonical(t *testing.T) {
	f := newFixture()
	conv, msgs := seedConversation(t, f)
	ctx := context.Background()

	updated, err := f.branches.UpdateMessage(ctx, conv.ID, msgs[0].ID, model.UpdateMessageRequest{
		Content: "Hello there AI",
	})
	if err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}
	if updated.Content != "Hello there AI" {
		t.Errorf("content = %q", updated.Content)
	}

	canonical, _ := f.store.GetMessage(ctx, conv.ID, msgs[0].ID)
	if canonical.Content != "Hello there AI" {
		t.Errorf("canonical content = %q, want direct mutation", canonical.Content)
	}
}

func TestDeleteLeafRules(t *testing.T) {
	f := newFixture()
	conv, msgs := seedConversation(t, f)
	ctx := context.Background()

	main, _ := f.branches.ActiveLeaf(ctx, conv.ID)
	if err := f.branches.DeleteLeaf(ctx, conv.ID, main.ID); !errors.Is(err, store.ErrMainLeafProtected) {
		t.Fatalf("deleting main: err = %v, want ErrMainLeafProtected", err)
	}

	alt, _ := f.branches.CreateLeaf(ctx, conv.ID, model.CreateLeafRequest{
		BranchFromMessageID: msgs[1].ID,
		Name:                "alt",
		NewContent:          "Greetings!",
	})
	if _, err := f.branches.SwitchActiveLeaf(ctx, conv.ID, alt.ID); err != nil {
		t.Fatalf("SwitchActiveLeaf: %v", err)
	}

	// Deleting the active leaf hands active status back to main.
	if err := f.branches.DeleteLeaf(ctx, conv.ID, alt.ID); err != nil {
		t.Fatalf("DeleteLeaf: %v", err)
	}
	active, err := f.branches.ActiveLeaf(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ActiveLeaf: %v", err)
	}
	if active.Name != model.MainLeafName {
		t.Errorf("active leaf = %q, want main", active.Name)
	}

	if err := f.branches.DeleteLeaf(ctx, conv.ID, alt.ID); !errors.Is(err, store.ErrLeafNotFound) {
		t.Errorf("second delete: err = %v, want ErrLeafNotFound", err)
	}
}

func TestListLeavesReportsActive(t *testing.T) {
	f := newFixture()
	conv, msgs := seedConversation(t, f)
	ctx := context.Background()

	alt, _ := f.branches.CreateLeaf(ctx, conv.ID, model.CreateLeafRequest{
		BranchFromMessageID: msgs[1].ID,
		Name:                "alt",
	})

	resp, err := f.branches.ListLeaves(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListLeaves: %v", err)
	}
	if len(resp.Leaves) != 2 {
		t.Fatalf("leaves = %d, want 2", len(resp.Leaves))
	}
	if resp.Leaves[0].Name != model.MainLeafName || resp.Leaves[1].ID != alt.ID {
		t.Errorf("creation order not preserved")
	}
	if resp.ActiveLeafID != resp.Leaves[0].ID {
		t.Errorf("active leaf id = %q, want main", resp.ActiveLeafID)
	}
}

func TestSwitchActiveLeafByName(t *testing.T) {
	f := newFixture()
	conv, msgs := seedConversation(t, f)
	ctx := context.Background()

	alt, _ := f.branches.CreateLeaf(ctx, conv.ID, model.CreateLeafRequest{
		BranchFromMessageID: msgs[1].ID,
		Name:                "alt",
	})

	leaf, err := f.branches.SwitchActiveLeaf(ctx, conv.ID, "alt")
	if err != nil {
		t.Fatalf("SwitchActiveLeaf: %v", err)
	}
	if leaf.ID != alt.ID {
		t.Errorf("switched leaf = %q, want %q", leaf.ID, alt.ID)
	}

	if _, err := f.branches.SwitchActiveLeaf(ctx, conv.ID, "nope"); !errors.Is(err, store.ErrLeafNotFound) {
		t.Errorf("err = %v, want ErrLeafNotFound", err)
	}
	if _, err := f.branches.SwitchActiveLeaf(ctx, "missing", "main"); !errors.Is(err, store.ErrConversationNotFound) {
		t.Errorf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestPruneAfter(t *testing.T) {
	f := newFixture()
	conv, msgs := seedConversation(t, f)
	ctx := context.Background()

	deleted, err := f.branches.PruneAfter(ctx, conv.ID, model.PruneAfterRequest{
		LeafID:         model.MainLeafName,
		AfterMessageID: msgs[0].ID,
	})
	if err != nil {
		t.Fatalf("PruneAfter: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	view, _ := f.resolver.Messages(ctx, conv.ID, model.MainLeafName)
	if len(view) != 1 {
		t.Fatalf("remaining view = %d messages, want 1", len(view))
	}
	if view[0].ID != msgs[0].ID {
		t.Errorf("survivor = %q, want %q", view[0].ID, msgs[0].ID)
	}

	_, err = f.branches.PruneAfter(ctx, conv.ID, model.PruneAfterRequest{
		LeafID:         model.MainLeafName,
		AfterMessageID: "missing",
	})
	if !errors.Is(err, store.ErrMessageNotFound) {
		t.Errorf("err = %v, want ErrMessageNotFound", err)
	}
}
