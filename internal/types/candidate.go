package types

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Candidate is a stored résumé with its contact details.
type Candidate struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	LinkedInURL string    `json:"linkedin_url,omitempty"`
	CVText      string    `json:"cv_text"`
	Embedding   []float32 `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WithoutEmbedding returns a copy of c with the embedding dropped.
func (c Candidate) WithoutEmbedding() Candidate {
	c.Embedding = nil
	return c
}

// CandidatePatch describes a partial update. Nil fields are left unchanged.
type CandidatePatch struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	LinkedInURL *string `json:"linkedin_url,omitempty"`
	CVText      *string `json:"cv_text,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p CandidatePatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.LinkedInURL == nil && p.CVText == nil
}

// Apply returns c with the patch applied.
func (p CandidatePatch) Apply(c Candidate) Candidate {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.LinkedInURL != nil {
		c.LinkedInURL = *p.LinkedInURL
	}
	if p.CVText != nil {
		c.CVText = *p.CVText
	}
	return c
}

// ScoredCandidate is a retrieval hit. Distance is cosine distance; lower is closer.
type ScoredCandidate struct {
	Candidate
	Distance float64 `json:"distance"`
}

// Similarity converts the distance to a 0..1 similarity for display.
func (s ScoredCandidate) Similarity() float64 {
	sim := 1 - s.Distance
	if math.IsNaN(sim) || sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
