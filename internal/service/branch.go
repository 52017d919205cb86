package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/branchline-ai/conversation-tree/internal/model"
	"github.com/branchline-ai/conversation-tree/internal/store"
	"github.com/branchline-ai/conversation-tree/pkg/logger"
	"github.com/branchline-ai/conversation-tree/pkg/metrics"
)

// unknownAuthor is recorded on copy-on-write versions whose branch
// point message cannot be found.
const unknownAuthor = "unknown"

// BranchService mutates the conversation tree: appending messages,
// creating and switching leaves, recording versions and pruning
// history. All failures are terminal; nothing here retries.
type BranchService struct {
	store    store.Store
	resolver *Resolver
	logger   *logger.Logger
}

// NewBranchService creates a new branch service.
func NewBranchService(st store.Store, resolver *Resolver, log *logger.Logger) *BranchService {
	return &BranchService{store: st, resolver: resolver, logger: log}
}

// AppendMessage appends a message to the conversation's currently
// active leaf. The returned message carries the leaf id it was
// attached to.
func (s *BranchService) AppendMessage(ctx context.Context, conversationID string, req model.AppendMessageRequest) (model.Message, error) {
	active, err := s.store.ActiveLeaf(ctx, conversationID)
	if err != nil {
		return model.Message{}, err
	}

	msg, err := s.store.AppendMessage(ctx, model.Message{
		ConversationID:  conversationID,
		AuthorID:        req.AuthorID,
		Content:         req.Content,
		CreatedInLeafID: active.ID,
	})
	if err != nil {
		return model.Message{}, err
	}

	metrics.MessagesTotal.Inc()
	msg.LeafID = active.ID
	return msg, nil
}

// UpdateMessage updates a message. With a leaf id, the edit is stored
// as a new MessageVersion under that leaf and the canonical content is
// untouched; without one, the canonical content is mutated directly.
func (s *BranchService) UpdateMessage(ctx context.Context, conversationID, messageID string, req model.UpdateMessageRequest) (model.Message, error) {
	if req.LeafID == "" {
		return s.store.UpdateMessageContent(ctx, conversationID, messageID, req.Content)
	}

	msg, err := s.store.GetMessage(ctx, conversationID, messageID)
	if err != nil {
		return model.Message{}, err
	}

	v, err := s.store.AppendVersion(ctx, model.MessageVersion{
		MessageID: messageID,
		Content:   req.Content,
		AuthorID:  msg.AuthorID,
		LeafID:    req.LeafID,
	})
	if err != nil {
		return model.Message{}, err
	}

	// The override map is only updated when the leaf exists; a version
	// recorded against an unknown leaf is kept but dangles.
	if err := s.store.SetLeafVersion(ctx, conversationID, req.LeafID, messageID, v.VersionNumber); err != nil && !errors.Is(err, store.ErrLeafNotFound) {
		return model.Message{}, err
	}

	metrics.VersionsTotal.Inc()
	s.logger.Info("message version created",
		zap.String("conversation_id", conversationID),
		zap.String("message_id", messageID),
		zap.String("leaf_id", req.LeafID),
		zap.Int("version_number", v.VersionNumber),
	)

	msg.Content = req.Content
	msg.LeafID = req.LeafID
	return msg, nil
}

// DeleteMessage removes a message and its versions.
func (s *BranchService) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	return s.store.DeleteMessage(ctx, conversationID, messageID)
}

// CreateLeaf branches the conversation at a message. When NewContent is
// set, the branch point message gets a copy-on-write version under the
// new leaf, authored by the original author when it can be found. The
// active leaf does not change.
func (s *BranchService) CreateLeaf(ctx context.Context, conversationID string, req model.CreateLeafRequest) (model.Leaf, error) {
	leaf, err := s.store.CreateLeaf(ctx, model.Leaf{
		ConversationID:       conversationID,
		Name:                 req.Name,
		BranchPointMessageID: req.BranchFromMessageID,
		MessageVersions:      map[string]int{},
	})
	if err != nil {
		return model.Leaf{}, err
	}

	if req.NewContent != "" {
		author := unknownAuthor
		if msg, err := s.store.GetMessage(ctx, conversationID, req.BranchFromMessageID); err == nil {
			author = msg.AuthorID
		}

		v, err := s.store.AppendVersion(ctx, model.MessageVersion{
			MessageID: req.BranchFromMessageID,
			Content:   req.NewContent,
			AuthorID:  author,
			LeafID:    leaf.ID,
		})
		switch {
		case err == nil:
			if err := s.store.SetLeafVersion(ctx, conversationID, leaf.ID, req.BranchFromMessageID, v.VersionNumber); err != nil {
				return model.Leaf{}, err
			}
			leaf.MessageVersions[req.BranchFromMessageID] = v.VersionNumber
			metrics.VersionsTotal.Inc()
		case errors.Is(err, store.ErrMessageNotFound):
			// The branch point never existed; the leaf is still
			// created, just without a seeded version.
			s.logger.Warn("branch point message missing, skipping copy-on-write seed",
				zap.String("conversation_id", conversationID),
				zap.String("message_id", req.BranchFromMessageID),
			)
		default:
			return model.Leaf{}, err
		}
	}

	metrics.LeavesTotal.Inc()
	s.logger.Info("leaf created",
		zap.String("conversation_id", conversationID),
		zap.String("leaf_id", leaf.ID),
		zap.String("name", leaf.Name),
		zap.String("branch_point", req.BranchFromMessageID),
	)

	return leaf, nil
}

// ListLeaves returns the conversation's leaves in creation order plus
// the active leaf id.
func (s *BranchService) ListLeaves(ctx context.Context, conversationID string) (model.ListLeavesResponse, error) {
	leaves, err := s.store.ListLeaves(ctx, conversationID)
	if err != nil {
		return model.ListLeavesResponse{}, err
	}

	resp := model.ListLeavesResponse{Leaves: leaves}
	for _, l := range leaves {
		if l.IsActive {
			resp.ActiveLeafID = l.ID
			break
		}
	}
	return resp, nil
}

// ActiveLeaf returns the conversation's active leaf.
func (s *BranchService) ActiveLeaf(ctx context.Context, conversationID string) (model.Leaf, error) {
	return s.store.ActiveLeaf(ctx, conversationID)
}

// SwitchActiveLeaf makes leafRef (id or name) the active leaf.
func (s *BranchService) SwitchActiveLeaf(ctx context.Context, conversationID, leafRef string) (model.Leaf, error) {
	leaf, ok := s.resolver.lookupLeaf(ctx, conversationID, leafRef)
	if !ok {
		// Distinguish a missing conversation from a missing leaf.
		if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
			return model.Leaf{}, err
		}
		return model.Leaf{}, store.ErrLeafNotFound
	}

	if err := s.store.SetActiveLeaf(ctx, conversationID, leaf.ID); err != nil {
		return model.Leaf{}, err
	}
	leaf.IsActive = true
	return leaf, nil
}

// DeleteLeaf removes a leaf and its versions. The main leaf is
// protected. Deleting the active leaf first hands active status back
// to main.
func (s *BranchService) DeleteLeaf(ctx context.Context, conversationID, leafID string) error {
	leaf, err := s.store.GetLeaf(ctx, conversationID, leafID)
	if err != nil {
		return err
	}
	if leaf.Name == model.MainLeafName {
		return store.ErrMainLeafProtected
	}

	if leaf.IsActive {
		main, ok := s.resolver.lookupLeaf(ctx, conversationID, model.MainLeafName)
		if !ok {
			return store.ErrLeafNotFound
		}
		if err := s.store.SetActiveLeaf(ctx, conversationID, main.ID); err != nil {
			return err
		}
	}

	if err := s.store.DeleteLeaf(ctx, conversationID, leafID); err != nil {
		return err
	}

	s.logger.Info("leaf deleted",
		zap.String("conversation_id", conversationID),
		zap.String("leaf_id", leafID),
		zap.String("name", leaf.Name),
	)
	return nil
}

// Versions returns the merged version list for a message: the
// canonical original at index 0 followed by stored versions shifted up
// by one. CurrentVersion reflects the active leaf's override.
func (s *BranchService) Versions(ctx context.Context, conversationID, messageID string) (model.VersionsResponse, error) {
	merged, err := s.mergedVersions(ctx, conversationID, messageID)
	if err != nil {
		return model.VersionsResponse{}, err
	}

	current := 0
	if active, err := s.store.ActiveLeaf(ctx, conversationID); err == nil {
		if idx, ok := active.MessageVersions[messageID]; ok {
			current = idx + 1
		}
	}

	return model.VersionsResponse{Versions: merged, CurrentVersion: current}, nil
}

// NavigateVersion selects a version by merged index. Selecting a stored
// version switches the active leaf to the leaf the version belongs to;
// index 0 is the canonical original and leaves the active leaf alone.
func (s *BranchService) NavigateVersion(ctx context.Context, conversationID, messageID string, index int) (model.NavigateVersionResponse, error) {
	merged, err := s.mergedVersions(ctx, conversationID, messageID)
	if err != nil {
		return model.NavigateVersionResponse{}, err
	}

	if index < 0 || index >= len(merged) {
		return model.NavigateVersionResponse{}, store.ErrVersionOutOfRange
	}

	selected := merged[index]
	if index > 0 && selected.LeafID != "" {
		if err := s.store.SetActiveLeaf(ctx, conversationID, selected.LeafID); err != nil && !errors.Is(err, store.ErrLeafNotFound) {
			return model.NavigateVersionResponse{}, err
		}
	}

	return model.NavigateVersionResponse{
		Content:        selected.Content,
		CurrentVersion: index,
	}, nil
}

// PruneAfter deletes every message strictly after afterMessageID in the
// leaf's resolved view. Returns the number of messages removed.
func (s *BranchService) PruneAfter(ctx context.Context, conversationID string, req model.PruneAfterRequest) (int, error) {
	view, err := s.resolver.Messages(ctx, conversationID, req.LeafID)
	if err != nil {
		return 0, err
	}

	afterIdx := -1
	for i, msg := range view {
		if msg.ID == req.AfterMessageID {
			afterIdx = i
			break
		}
	}
	if afterIdx < 0 {
		return 0, store.ErrMessageNotFound
	}

	deleted := 0
	for _, msg := range view[afterIdx+1:] {
		if err := s.store.DeleteMessage(ctx, conversationID, msg.ID); err != nil {
			return deleted, err
		}
		deleted++
	}

	s.logger.Info("pruned messages",
		zap.String("conversation_id", conversationID),
		zap.String("leaf_id", req.LeafID),
		zap.Int("deleted", deleted),
	)
	return deleted, nil
}

// mergedVersions builds the merged version list: canonical content at
// index 0 attributed to "main", then stored versions with their
// numbers shifted up by one.
func (s *BranchService) mergedVersions(ctx context.Context, conversationID, messageID string) ([]model.MessageVersion, error) {
	msg, err := s.store.GetMessage(ctx, conversationID, messageID)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.ListVersions(ctx, messageID)
	if err != nil {
		return nil, err
	}

	merged := make([]model.MessageVersion, 0, len(stored)+1)
	merged = append(merged, model.MessageVersion{
		Content:       msg.Content,
		VersionNumber: 0,
		LeafID:        model.MainLeafName,
	})
	for _, v := range stored {
		v.VersionNumber++
		merged = append(merged, v)
	}
	return merged, nil
}
