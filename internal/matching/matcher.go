// Package matching retrieves the candidates closest to a job's requirements
// by embedding a composite query and asking the vector index.
package matching

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/embedding"
	"github.com/jonathan/candidate-matcher/internal/logger"
	"github.com/jonathan/candidate-matcher/internal/store"
	"github.com/jonathan/candidate-matcher/internal/types"
)

// DefaultTopK is the number of candidates returned when callers do not say.
const DefaultTopK = 10

// Matcher finds candidates for a set of requirements.
type Matcher struct {
	embedder embedding.Embedder
	index    store.CandidateIndex
	log      *zap.Logger
}

// New creates a Matcher.
func New(embedder embedding.Embedder, index store.CandidateIndex, log *zap.Logger) *Matcher {
	return &Matcher{embedder: embedder, index: index, log: logger.Named(log, "matching")}
}

// ClampTopK bounds k to [1,100].
func ClampTopK(k int) int {
	return store.ClampLimit(k)
}

// Search returns up to topK candidates ordered by ascending distance. A
// failed embedding or index lookup is a retrieval error.
func (m *Matcher) Search(ctx context.Context, reqs types.JobRequirements, topK int) ([]types.ScoredCandidate, error) {
	const op = "matching.Search"
	k := ClampTopK(topK)

	query := CompositeQuery(reqs)
	vec := m.embedder.Embed(ctx, query)
	if embedding.IsZero(vec) {
		return nil, apperrors.E(apperrors.CodeRetrieval, op, "failed to embed job requirements", nil)
	}

	hits, err := m.index.Search(ctx, vec, k)
	if err != nil {
		return nil, apperrors.E(apperrors.CodeRetrieval, op, "candidate search failed", err)
	}

	hits = dedupe(hits, k)
	m.log.Info("candidate search complete",
		zap.String("job_title", reqs.Title),
		zap.Int("requested", k),
		zap.Int("found", len(hits)))
	return hits, nil
}

// Similar returns up to k candidates closest to an existing candidate,
// excluding the candidate itself.
func (m *Matcher) Similar(ctx context.Context, candidateID uuid.UUID, k int) ([]types.ScoredCandidate, error) {
	const op = "matching.Similar"
	k = ClampTopK(k)

	hits, err := m.index.SearchExcluding(ctx, candidateID, k)
	if err != nil {
		switch apperrors.CodeOf(err) {
		case apperrors.CodeNotFound, apperrors.CodeInvalidState:
			return nil, err
		}
		return nil, apperrors.E(apperrors.CodeRetrieval, op, "similar candidate search failed", err)
	}
	return dedupe(hits, k), nil
}

// CompositeQuery renders the requirements as the text that is embedded.
// Salary is left out; it says nothing about candidate fit.
func CompositeQuery(r types.JobRequirements) string {
	var sb strings.Builder
	line := func(label, value string) {
		if !types.IsSpecified(value) {
			value = types.NotSpecified
		}
		fmt.Fprintf(&sb, "%s: %s\n", label, strings.TrimSpace(value))
	}

	line("Job Title", r.Title)
	line("Responsibilities", types.JoinSpecified(r.Responsibilities, ", "))
	line("Required Skills", types.JoinSpecified(r.RequiredSkills, ", "))
	line("Experience Level", r.ExperienceLevel)
	line("Education", r.Education)
	line("Industry Knowledge", types.JoinSpecified(r.IndustryKnowledge, ", "))
	line("Preferred Qualifications", types.JoinSpecified(r.PreferredQualifications, ", "))
	line("Work Environment", r.WorkEnvironment)
	line("Culture Fit", types.JoinSpecified(r.CultureFit, ", "))
	return strings.TrimSpace(sb.String())
}

func dedupe(hits []types.ScoredCandidate, k int) []types.ScoredCandidate {
	seen := make(map[uuid.UUID]struct{}, len(hits))
	out := make([]types.ScoredCandidate, 0, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}
		h.Embedding = nil
		if math.IsNaN(h.Distance) {
			h.Distance = 1
		}
		out = append(out, h)
		if len(out) == k {
			break
		}
	}
	return out
}
