package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidate_EmbeddingNotSerialized(t *testing.T) {
	c := Candidate{ID: uuid.New(), Name: "Ada", CVText: "cv", Embedding: []float32{0.1, 0.2}}

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "embedding")
	assert.NotContains(t, string(data), "0.1")
}

func TestCandidatePatch(t *testing.T) {
	assert.True(t, CandidatePatch{}.IsEmpty())

	email := "ada@example.com"
	cv := "new cv"
	p := CandidatePatch{Email: &email, CVText: &cv}
	assert.False(t, p.IsEmpty())

	got := p.Apply(Candidate{Name: "Ada", Email: "old@example.com", Phone: "555", CVText: "old"})
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, email, got.Email)
	assert.Equal(t, "555", got.Phone)
	assert.Equal(t, cv, got.CVText)
}

func TestScoredCandidate_Similarity(t *testing.T) {
	assert.InDelta(t, 0.75, ScoredCandidate{Distance: 0.25}.Similarity(), 1e-9)
	assert.Equal(t, 0.0, ScoredCandidate{Distance: 1.5}.Similarity())
	assert.Equal(t, 1.0, ScoredCandidate{Distance: -0.1}.Similarity())
	assert.Equal(t, 0.0, ScoredCandidate{Distance: math.NaN()}.Similarity())
}
