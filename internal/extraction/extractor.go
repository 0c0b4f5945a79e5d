// Package extraction turns a free-text job description into structured
// JobRequirements using the LLM. It never fails: any provider, parse or
// validation error yields the fallback record.
package extraction

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/ingestion"
	"github.com/jonathan/candidate-matcher/internal/llm"
	"github.com/jonathan/candidate-matcher/internal/logger"
	"github.com/jonathan/candidate-matcher/internal/prompts"
	"github.com/jonathan/candidate-matcher/internal/schemas"
	"github.com/jonathan/candidate-matcher/internal/types"
)

// DefaultMaxInputChars caps the description sent to the model.
const DefaultMaxInputChars = 12000

// Options configures an Extractor.
type Options struct {
	MaxInputChars int
	Tier          llm.ModelTier
}

// Extractor extracts job requirements with an LLM.
type Extractor struct {
	client llm.Client
	opts   Options
	log    *zap.Logger
}

// New creates an Extractor. Zero options take their defaults.
func New(client llm.Client, opts Options, log *zap.Logger) *Extractor {
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = DefaultMaxInputChars
	}
	if opts.Tier == "" {
		opts.Tier = llm.TierStandard
	}
	return &Extractor{client: client, opts: opts, log: logger.Named(log, "extraction")}
}

// Extract returns the requirements found in text. OriginalDescription always
// holds the unmodified input.
func (e *Extractor) Extract(ctx context.Context, text string) types.JobRequirements {
	reqs, err := e.extract(ctx, text)
	if err != nil {
		e.log.Warn("requirement extraction failed, using fallback",
			zap.String("code", string(apperrors.CodeGeneration)),
			zap.Error(err))
		return types.FallbackRequirements(text)
	}
	return reqs
}

func (e *Extractor) extract(ctx context.Context, text string) (types.JobRequirements, error) {
	if e.client == nil {
		return types.JobRequirements{}, fmt.Errorf("no LLM client configured")
	}

	cleaned, err := ingestion.Prepare(text, e.opts.MaxInputChars)
	if err != nil {
		return types.JobRequirements{}, err
	}
	if cleaned == "" {
		return types.JobRequirements{}, fmt.Errorf("job description is empty")
	}

	tmpl := prompts.MustGet("extraction.json", "extract-requirements")
	messages := tmpl.Messages(map[string]string{"Description": cleaned})

	e.log.Debug("extracting requirements", zap.Int("chars", len(cleaned)))
	reply, err := e.client.Complete(ctx, messages, llm.Options{
		Tier:        e.opts.Tier,
		Temperature: llm.Temperature(0.2),
		JSON:        true,
	})
	if err != nil {
		return types.JobRequirements{}, fmt.Errorf("LLM generation failed: %w", err)
	}

	obj, err := llm.ParseJSON(reply)
	if err != nil {
		return types.JobRequirements{}, fmt.Errorf("%w (content: %s)", err, logger.Truncate(reply, 200))
	}
	obj = llm.SnakeKeys(obj)
	if err := schemas.ValidateValue(schemas.JobRequirements, obj); err != nil {
		return types.JobRequirements{}, err
	}

	var reqs types.JobRequirements
	if err := llm.DecodeMap(obj, &reqs); err != nil {
		return types.JobRequirements{}, err
	}
	reqs.OriginalDescription = text
	reqs.Normalize()
	if !types.IsSpecified(reqs.Title) {
		reqs.Title = types.DefaultJobTitle
	}
	return reqs, nil
}
