package service

import (
	"context"

	"github.com/branchline-ai/conversation-tree/internal/model"
	"github.com/branchline-ai/conversation-tree/internal/store"
)

// Resolver reconstructs the ordered message list visible on a leaf.
// Branching is copy-on-write: no message rows are duplicated, so a
// leaf's view is rebuilt from the canonical sequence by filtering on
// creation leaf and substituting version overrides.
type Resolver struct {
	store store.Store
}

// NewResolver creates a resolver backed by the given store.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// Messages returns the message view for leafRef, which may be a leaf id
// or a leaf name. An empty or unknown leafRef returns the unmodified
// canonical sequence; callers probing a leaf that does not exist get
// the full history rather than an error.
func (r *Resolver) Messages(ctx context.Context, conversationID, leafRef string) ([]model.Message, error) {
	conv, err := r.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	canonical := conv.Messages
	if canonical == nil {
		canonical = []model.Message{}
	}

	if leafRef == "" {
		return canonical, nil
	}
	leaf, ok := r.lookupLeaf(ctx, conversationID, leafRef)
	if !ok {
		return canonical, nil
	}

	included := r.filter(canonical, leaf)

	out := make([]model.Message, 0, len(included))
	for _, msg := range included {
		if idx, has := leaf.MessageVersions[msg.ID]; has {
			// A dangling override (version row swept by a leaf
			// deletion) falls back to canonical content.
			if v, err := r.store.VersionAt(ctx, msg.ID, idx); err == nil {
				msg.Content = v.Content
			}
		}
		msg.LeafID = leaf.ID
		out = append(out, msg)
	}
	return out, nil
}

// filter applies the branch-point rules to the canonical sequence.
func (r *Resolver) filter(canonical []model.Message, leaf model.Leaf) []model.Message {
	if leaf.BranchPointMessageID == "" {
		// No branch point: a message is visible if it was created on
		// this leaf or predates leaf tracking entirely.
		out := make([]model.Message, 0, len(canonical))
		for _, msg := range canonical {
			if msg.CreatedInLeafID == "" || msg.CreatedInLeafID == leaf.ID {
				out = append(out, msg)
			}
		}
		return out
	}

	branchIdx := -1
	for i, msg := range canonical {
		if msg.ID == leaf.BranchPointMessageID {
			branchIdx = i
			break
		}
	}

	// A dangling branch point behaves as "before the beginning": only
	// leaf-local messages survive.
	out := make([]model.Message, 0, len(canonical))
	for i, msg := range canonical {
		if branchIdx >= 0 && i <= branchIdx {
			out = append(out, msg)
			continue
		}
		if msg.CreatedInLeafID == leaf.ID {
			out = append(out, msg)
		}
	}
	return out
}

// lookupLeaf resolves a leaf reference by id first, then by name, so
// clients can ask for "main" without knowing its generated id.
func (r *Resolver) lookupLeaf(ctx context.Context, conversationID, leafRef string) (model.Leaf, bool) {
	leaves, err := r.store.ListLeaves(ctx, conversationID)
	if err != nil {
		return model.Leaf{}, false
	}
	for _, l := range leaves {
		if l.ID == leafRef {
			return l, true
		}
	}
	for _, l := range leaves {
		if l.Name == leafRef {
			return l, true
		}
	}
	return model.Leaf{}, false
}
