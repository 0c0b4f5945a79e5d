package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// DefaultGeminiModel is the default embedding model (768 dimensions).
const DefaultGeminiModel = "text-embedding-004"

// GeminiBackend embeds text with a Gemini embedding model.
type GeminiBackend struct {
	model *genai.EmbeddingModel
	name  string
}

// ModelSource hands out embedding model handles. *genai.Client and
// *llm.GeminiClient both satisfy it.
type ModelSource interface {
	EmbeddingModel(name string) *genai.EmbeddingModel
}

// NewGeminiBackend builds a backend for the named model.
func NewGeminiBackend(src ModelSource, model string) *GeminiBackend {
	if model == "" {
		model = DefaultGeminiModel
	}
	em := src.EmbeddingModel(model)
	em.TaskType = genai.TaskTypeSemanticSimilarity
	return &GeminiBackend{model: em, name: model}
}

// Model returns the embedding model name.
func (b *GeminiBackend) Model() string { return b.name }

// EmbedText calls the embedding endpoint.
func (b *GeminiBackend) EmbedText(ctx context.Context, text string) ([]float32, error) {
	res, err := b.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, errors.New("empty embedding in response")
	}
	return res.Embedding.Values, nil
}
