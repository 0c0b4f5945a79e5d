// Package embeddingtest provides a deterministic Embedder for tests.
package embeddingtest

import (
	"context"
	"strings"
	"sync"
)

// Fake maps texts to vectors by keyword. The first keyword (in insertion
// order) contained in the text wins; unmatched text gets the zero vector.
type Fake struct {
	Dim int

	mu       sync.Mutex
	keywords []string
	vectors  map[string][]float32
	calls    []string
}

// New returns a Fake producing vectors of length dim.
func New(dim int) *Fake {
	return &Fake{Dim: dim, vectors: map[string][]float32{}}
}

// On registers the vector returned for texts containing keyword.
func (f *Fake) On(keyword string, vec ...float32) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vectors[keyword]; !ok {
		f.keywords = append(f.keywords, keyword)
	}
	f.vectors[keyword] = vec
	return f
}

// Embed implements embedding.Embedder.
func (f *Fake) Embed(_ context.Context, text string) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	for _, kw := range f.keywords {
		if strings.Contains(text, kw) {
			return append([]float32(nil), f.vectors[kw]...)
		}
	}
	return make([]float32, f.Dim)
}

// Dimension implements embedding.Embedder.
func (f *Fake) Dimension() int { return f.Dim }

// Calls returns the texts embedded so far.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
