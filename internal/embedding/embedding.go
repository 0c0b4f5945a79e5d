// Package embedding turns text into fixed-length vectors for candidate retrieval.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/ingestion"
	"github.com/jonathan/candidate-matcher/internal/logger"
)

// DefaultMaxInputChars bounds the text sent to the embedding model.
const DefaultMaxInputChars = 8000

// Embedder maps text to a vector of Dimension() floats. Embed never fails:
// provider errors yield a zero vector of the same length.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
	Dimension() int
}

// Backend is a raw embedding provider.
type Backend interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Service implements Embedder on top of a Backend.
type Service struct {
	backend  Backend
	dim      int
	maxChars int
	log      *zap.Logger
}

// NewService wraps backend. dim is the vector length every result must have.
func NewService(backend Backend, dim int, log *zap.Logger) (*Service, error) {
	if backend == nil {
		return nil, errors.New("embedding backend is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	return &Service{
		backend:  backend,
		dim:      dim,
		maxChars: DefaultMaxInputChars,
		log:      logger.Named(log, "embedding").With(zap.String(logger.FieldModel, backend.Model())),
	}, nil
}

// Dimension returns the fixed vector length.
func (s *Service) Dimension() int { return s.dim }

// Embed returns the embedding of text, or a zero vector when the provider
// fails or returns a vector of the wrong length.
func (s *Service) Embed(ctx context.Context, text string) []float32 {
	text = ingestion.Truncate(strings.TrimSpace(text), s.maxChars)
	if text == "" {
		s.log.Warn("empty text, returning zero vector")
		return s.Zero()
	}

	vec, err := s.backend.EmbedText(ctx, text)
	if err != nil {
		s.log.Error("embedding failed, returning zero vector", zap.Error(err))
		return s.Zero()
	}
	if len(vec) != s.dim {
		s.log.Error("embedding has unexpected dimension, returning zero vector",
			zap.Int("expected", s.dim), zap.Int("got", len(vec)))
		return s.Zero()
	}
	return vec
}

// Zero returns a zero vector of the service dimension.
func (s *Service) Zero() []float32 {
	return make([]float32, s.dim)
}

// IsZero reports whether every component of vec is zero.
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
