// Package store declares the persistence contracts used by the matcher and
// the session layer. Implementations live in internal/db (PostgreSQL) and
// internal/store/memory.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/candidate-matcher/internal/types"
)

// MaxSearchLimit bounds k for every nearest-neighbour query.
const MaxSearchLimit = 100

// CandidateIndex answers nearest-neighbour queries over candidate embeddings.
// Results are ordered by ascending cosine distance, ties by ascending id, and
// never carry embeddings.
type CandidateIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]types.ScoredCandidate, error)
	// SearchExcluding ranks candidates by distance to the anchor's embedding,
	// leaving the anchor itself out.
	SearchExcluding(ctx context.Context, anchorID uuid.UUID, k int) ([]types.ScoredCandidate, error)
}

// CandidateStore persists candidates and their embeddings.
type CandidateStore interface {
	CandidateIndex
	InsertCandidate(ctx context.Context, c types.Candidate) (*types.Candidate, error)
	// UpdateCandidate applies patch. A nil embedding keeps the stored one.
	UpdateCandidate(ctx context.Context, id uuid.UUID, patch types.CandidatePatch, embedding []float32) (*types.Candidate, error)
	GetCandidate(ctx context.Context, id uuid.UUID) (*types.Candidate, error)
	ListCandidates(ctx context.Context) ([]types.Candidate, error)
	DeleteCandidate(ctx context.Context, id uuid.UUID) error
}

// ConversationStore persists conversations and their append-only messages.
type ConversationStore interface {
	CreateConversation(ctx context.Context, title string) (*types.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*types.Conversation, error)
	// ListConversations returns the most recently updated first.
	ListConversations(ctx context.Context) ([]types.Conversation, error)
	UpdateConversationTitle(ctx context.Context, id uuid.UUID, title string) (*types.Conversation, error)
	// DeleteConversation removes the conversation with its messages and results.
	DeleteConversation(ctx context.Context, id uuid.UUID) error
	AppendMessage(ctx context.Context, conversationID uuid.UUID, role types.Role, content string) (*types.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]types.Message, error)
}

// ResultStore keeps the pipeline result behind each assistant reply.
type ResultStore interface {
	SaveResult(ctx context.Context, r types.StoredResult) error
	// LatestResult returns nil, nil when the conversation has no result.
	LatestResult(ctx context.Context, conversationID uuid.UUID) (*types.StoredResult, error)
	ResultForMessage(ctx context.Context, messageID uuid.UUID) (*types.StoredResult, error)
}

// Store bundles every contract. Both implementations satisfy it.
type Store interface {
	CandidateStore
	ConversationStore
	ResultStore
	Close()
}

// ClampLimit bounds k to [1, MaxSearchLimit].
func ClampLimit(k int) int {
	if k < 1 {
		return 1
	}
	if k > MaxSearchLimit {
		return MaxSearchLimit
	}
	return k
}
