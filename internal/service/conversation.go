// Package service provides business logic for the conversation tree
// platform.
package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/branchline-ai/conversation-tree/internal/model"
	"github.com/branchline-ai/conversation-tree/internal/store"
	"github.com/branchline-ai/conversation-tree/pkg/logger"
	"github.com/branchline-ai/conversation-tree/pkg/metrics"
)

// ConversationService handles conversation lifecycle operations.
type ConversationService struct {
	store  store.Store
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(st store.Store, log *logger.Logger) *ConversationService {
	return &ConversationService{store: st, logger: log}
}

// Create creates a conversation with its participants, seed messages
// and main leaf.
func (s *ConversationService) Create(ctx context.Context, req model.CreateConversationRequest) (model.Conversation, error) {
	conv := model.Conversation{
		ID:           req.ID,
		Kind:         req.Kind,
		Title:        req.Title,
		Participants: req.Participants,
		Messages:     req.Messages,
	}
	if conv.Kind == "" {
		conv.Kind = model.KindChat
	}

	created, err := s.store.CreateConversation(ctx, conv)
	if err != nil {
		return model.Conversation{}, err
	}

	metrics.ConversationsTotal.WithLabelValues(string(created.Kind)).Inc()
	metrics.LeavesTotal.Inc()
	s.logger.Info("conversation created",
		zap.String("conversation_id", created.ID),
		zap.String("type", string(created.Kind)),
		zap.Int("seed_messages", len(created.Messages)),
	)

	return created, nil
}

// Get retrieves a conversation with its full canonical history.
func (s *ConversationService) Get(ctx context.Context, conversationID string) (model.Conversation, error) {
	return s.store.GetConversation(ctx, conversationID)
}

// List retrieves all conversations without message bodies.
func (s *ConversationService) List(ctx context.Context) (model.ListConversationsResponse, error) {
	convs, err := s.store.ListConversations(ctx)
	if err != nil {
		return model.ListConversationsResponse{}, err
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	return model.ListConversationsResponse{Data: convs}, nil
}

// Update applies title and kind changes to a conversation.
func (s *ConversationService) Update(ctx context.Context, conversationID string, req model.UpdateConversationRequest) (model.Conversation, error) {
	return s.store.UpdateConversation(ctx, conversationID, req)
}

// Delete removes a conversation and everything it owns.
func (s *ConversationService) Delete(ctx context.Context, conversationID string) error {
	if err := s.store.DeleteConversation(ctx, conversationID); err != nil {
		return err
	}
	s.logger.Info("conversation deleted", zap.String("conversation_id", conversationID))
	return nil
}

// GetOrCreateWiki returns the wiki conversation for a concept, creating
// it on first access. Concept names map to stable ids, so "Machine
// Learning" and "machine learning" share one page.
func (s *ConversationService) GetOrCreateWiki(ctx context.Context, concept string) (model.Conversation, error) {
	id := WikiID(concept)

	conv, err := s.store.GetConversation(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrConversationNotFound) {
		return model.Conversation{}, err
	}

	return s.Create(ctx, model.CreateConversationRequest{
		ID:    id,
		Kind:  model.KindWiki,
		Title: concept,
	})
}

// WikiID derives the stable conversation id for a wiki concept:
// lowercased, spaces replaced with hyphens, prefixed with "wiki-".
func WikiID(concept string) string {
	normalized := strings.ReplaceAll(strings.ToLower(concept), " ", "-")
	return "wiki-" + normalized
}
