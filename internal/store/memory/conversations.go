package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/types"
)

// CreateConversation starts a conversation with the given title.
func (s *Store) CreateConversation(_ context.Context, title string) (*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	rec := &conversationRecord{
		conv: types.Conversation{ID: uuid.New(), Title: title, CreatedAt: now, UpdatedAt: now},
		seq:  s.seq,
	}
	s.conversations[rec.conv.ID] = rec
	out := rec.conv
	return &out, nil
}

// GetConversation returns a conversation by id.
func (s *Store) GetConversation(_ context.Context, id uuid.UUID) (*types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.conversations[id]
	if !ok {
		return nil, apperrors.NotFound("memory.GetConversation", "conversation", id)
	}
	out := rec.conv
	return &out, nil
}

// ListConversations returns conversations, most recently updated first.
func (s *Store) ListConversations(_ context.Context) ([]types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*conversationRecord, 0, len(s.conversations))
	for _, rec := range s.conversations {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })

	out := make([]types.Conversation, len(recs))
	for i, rec := range recs {
		out[i] = rec.conv
	}
	return out, nil
}

// UpdateConversationTitle renames a conversation.
func (s *Store) UpdateConversationTitle(_ context.Context, id uuid.UUID, title string) (*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.conversations[id]
	if !ok {
		return nil, apperrors.NotFound("memory.UpdateConversationTitle", "conversation", id)
	}
	rec.conv.Title = title
	rec.conv.UpdatedAt = s.tick()
	rec.seq = s.seq
	out := rec.conv
	return &out, nil
}

// DeleteConversation removes the conversation, its messages and its results.
func (s *Store) DeleteConversation(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return apperrors.NotFound("memory.DeleteConversation", "conversation", id)
	}
	for _, msgID := range s.resultOrder[id] {
		delete(s.results, msgID)
	}
	delete(s.resultOrder, id)
	delete(s.messages, id)
	delete(s.conversations, id)
	return nil
}

// AppendMessage adds a message and bumps the conversation's UpdatedAt.
func (s *Store) AppendMessage(_ context.Context, conversationID uuid.UUID, role types.Role, content string) (*types.Message, error) {
	const op = "memory.AppendMessage"
	if !role.Valid() {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "invalid role: "+string(role), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.conversations[conversationID]
	if !ok {
		return nil, apperrors.NotFound(op, "conversation", conversationID)
	}
	now := s.tick()
	msg := types.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	rec.conv.UpdatedAt = now
	rec.seq = s.seq
	return &msg, nil
}

// ListMessages returns messages in creation order.
func (s *Store) ListMessages(_ context.Context, conversationID uuid.UUID) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, apperrors.NotFound("memory.ListMessages", "conversation", conversationID)
	}
	msgs := s.messages[conversationID]
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// SaveResult stores the result behind an assistant message.
func (s *Store) SaveResult(_ context.Context, r types.StoredResult) error {
	const op = "memory.SaveResult"
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[r.ConversationID]; !ok {
		return apperrors.NotFound(op, "conversation", r.ConversationID)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.tick()
	}
	if _, exists := s.results[r.MessageID]; !exists {
		s.resultOrder[r.ConversationID] = append(s.resultOrder[r.ConversationID], r.MessageID)
	}
	s.results[r.MessageID] = r
	return nil
}

// LatestResult returns the most recently saved result, or nil.
func (s *Store) LatestResult(_ context.Context, conversationID uuid.UUID) (*types.StoredResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.resultOrder[conversationID]
	if len(ids) == 0 {
		return nil, nil
	}
	r := s.results[ids[len(ids)-1]]
	return &r, nil
}

// ResultForMessage returns the result saved for a message, or nil.
func (s *Store) ResultForMessage(_ context.Context, messageID uuid.UUID) (*types.StoredResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[messageID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}
