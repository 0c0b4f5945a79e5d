// Package memory is an in-process implementation of store.Store used by tests
// and by the CLI's --in-memory mode. Cosine distance is computed in Go.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/store"
	"github.com/jonathan/candidate-matcher/internal/types"
)

type conversationRecord struct {
	conv types.Conversation
	seq  uint64
}

// Store keeps everything in maps guarded by a single mutex.
type Store struct {
	mu            sync.RWMutex
	now           func() time.Time
	seq           uint64
	dim           int
	candidates    map[uuid.UUID]types.Candidate
	conversations map[uuid.UUID]*conversationRecord
	messages      map[uuid.UUID][]types.Message
	results       map[uuid.UUID]types.StoredResult // by message id
	resultOrder   map[uuid.UUID][]uuid.UUID        // conversation -> message ids
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		now:           func() time.Time { return time.Now().UTC() },
		candidates:    make(map[uuid.UUID]types.Candidate),
		conversations: make(map[uuid.UUID]*conversationRecord),
		messages:      make(map[uuid.UUID][]types.Message),
		results:       make(map[uuid.UUID]types.StoredResult),
		resultOrder:   make(map[uuid.UUID][]uuid.UUID),
	}
}

// Close is a no-op.
func (s *Store) Close() {}

func (s *Store) tick() time.Time {
	s.seq++
	return s.now()
}

// -----------------------------------------------------------------------------
// Candidates
// -----------------------------------------------------------------------------

// InsertCandidate stores c, assigning an id when it has none.
func (s *Store) InsertCandidate(_ context.Context, c types.Candidate) (*types.Candidate, error) {
	const op = "memory.InsertCandidate"
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDimension(op, c.Embedding); err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if _, exists := s.candidates[c.ID]; exists {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "candidate already exists", nil)
	}
	now := s.tick()
	c.CreatedAt, c.UpdatedAt = now, now
	c.Embedding = cloneVector(c.Embedding)
	s.candidates[c.ID] = c

	out := c.WithoutEmbedding()
	return &out, nil
}

// UpdateCandidate applies patch and optionally replaces the embedding.
func (s *Store) UpdateCandidate(_ context.Context, id uuid.UUID, patch types.CandidatePatch, embedding []float32) (*types.Candidate, error) {
	const op = "memory.UpdateCandidate"
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[id]
	if !ok {
		return nil, apperrors.NotFound(op, "candidate", id)
	}
	if embedding != nil {
		if err := s.checkDimension(op, embedding); err != nil {
			return nil, err
		}
		c.Embedding = cloneVector(embedding)
	}
	c = patch.Apply(c)
	c.UpdatedAt = s.tick()
	s.candidates[id] = c

	out := c.WithoutEmbedding()
	return &out, nil
}

// GetCandidate returns the candidate without its embedding.
func (s *Store) GetCandidate(_ context.Context, id uuid.UUID) (*types.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.candidates[id]
	if !ok {
		return nil, apperrors.NotFound("memory.GetCandidate", "candidate", id)
	}
	out := c.WithoutEmbedding()
	return &out, nil
}

// ListCandidates returns every candidate, newest first.
func (s *Store) ListCandidates(_ context.Context) ([]types.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		out = append(out, c.WithoutEmbedding())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// DeleteCandidate removes a candidate.
func (s *Store) DeleteCandidate(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.candidates[id]; !ok {
		return apperrors.NotFound("memory.DeleteCandidate", "candidate", id)
	}
	delete(s.candidates, id)
	return nil
}

// Search ranks every embedded candidate by cosine distance to vector.
func (s *Store) Search(_ context.Context, vector []float32, k int) ([]types.ScoredCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dim != 0 && len(vector) != s.dim {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, "memory.Search", "query dimension mismatch", nil)
	}
	return s.rank(vector, uuid.Nil, store.ClampLimit(k)), nil
}

// SearchExcluding ranks candidates against the anchor's embedding.
func (s *Store) SearchExcluding(_ context.Context, anchorID uuid.UUID, k int) ([]types.ScoredCandidate, error) {
	const op = "memory.SearchExcluding"
	s.mu.RLock()
	defer s.mu.RUnlock()

	anchor, ok := s.candidates[anchorID]
	if !ok {
		return nil, apperrors.NotFound(op, "candidate", anchorID)
	}
	if len(anchor.Embedding) == 0 {
		return nil, apperrors.E(apperrors.CodeInvalidState, op, "candidate has no embedding", nil)
	}
	return s.rank(anchor.Embedding, anchorID, store.ClampLimit(k)), nil
}

func (s *Store) rank(query []float32, exclude uuid.UUID, k int) []types.ScoredCandidate {
	hits := make([]types.ScoredCandidate, 0, len(s.candidates))
	for id, c := range s.candidates {
		if id == exclude || len(c.Embedding) == 0 {
			continue
		}
		hits = append(hits, types.ScoredCandidate{
			Candidate: c.WithoutEmbedding(),
			Distance:  CosineDistance(query, c.Embedding),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID.String() < hits[j].ID.String()
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// checkDimension pins the index dimension to the first embedding stored.
// Callers hold the write lock.
func (s *Store) checkDimension(op string, vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	if s.dim == 0 {
		s.dim = len(vec)
		return nil
	}
	if len(vec) != s.dim {
		return apperrors.E(apperrors.CodeInvalidArgument, op, "embedding dimension mismatch", nil)
	}
	return nil
}

// CosineDistance returns 1 - cos(a, b). Zero-length or zero-norm inputs are
// treated as maximally distant among non-opposite vectors (distance 1).
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
