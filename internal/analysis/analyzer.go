// Package analysis scores how well a candidate fits a job with the LLM.
package analysis

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

// MaxCVChars caps the CV text included in the prompt.
const MaxCVChars = 6000

// Analyzer produces a MatchAnalysis per candidate.
type Analyzer struct {
	client llm.Client
	tier   llm.ModelTier
	log    *zap.Logger
}

// New creates an Analyzer using the standard model tier.
func New(client llm.Client, log *zap.Logger) *Analyzer {
	return &Analyzer{client: client, tier: llm.TierStandard, log: logger.Named(log, "analysis")}
}

// Analyze evaluates the candidate against the requirements. The bool is true
// when the fallback analysis was returned. There are no retries here; the
// client already retries transient provider errors.
func (a *Analyzer) Analyze(ctx context.Context, c types.Candidate, reqs types.JobRequirements) (types.MatchAnalysis, bool) {
	result, err := a.analyze(ctx, c, reqs)
	if err != nil {
		a.log.Warn("match analysis failed, using fallback",
			zap.String(logger.FieldCandidate, c.ID.String()),
			zap.String("code", string(apperrors.CodeGeneration)),
			zap.Error(err))
		return types.FallbackAnalysis(), true
	}
	return result, false
}

func (a *Analyzer) analyze(ctx context.Context, c types.Candidate, reqs types.JobRequirements) (types.MatchAnalysis, error) {
	if a.client == nil {
		return types.MatchAnalysis{}, fmt.Errorf("no LLM client configured")
	}

	tmpl := prompts.MustGet("matching.json", "analyze-match")
	messages := tmpl.Messages(PromptData(c, reqs))

	reply, err := a.client.Complete(ctx, messages, llm.Options{
		Tier:        a.tier,
		Temperature: llm.Temperature(0.3),
		JSON:        true,
	})
	if err != nil {
		return types.MatchAnalysis{}, fmt.Errorf("LLM generation failed: %w", err)
	}

	obj, err := llm.ParseJSON(reply)
	if err != nil {
		return types.MatchAnalysis{}, fmt.Errorf("%w (content: %s)", err, logger.Truncate(reply, 200))
	}
	obj = llm.SnakeKeys(obj)
	if err := schemas.ValidateValue(schemas.MatchAnalysis, obj); err != nil {
		return types.MatchAnalysis{}, err
	}

	var result types.MatchAnalysis
	if err := llm.DecodeMap(obj, &result); err != nil {
		return types.MatchAnalysis{}, err
	}
	result.MatchScore = types.ClampScore(result.MatchScore)
	return result, nil
}

// PromptData renders the placeholders shared by the analysis prompt.
func PromptData(c types.Candidate, reqs types.JobRequirements) map[string]string {
	cv := ingestion.Truncate(c.CVText, MaxCVChars)
	if cv == "" {
		cv = "No CV content available"
	}
	return map[string]string{
		"JobTitle":         reqs.Title,
		"RequiredSkills":   types.JoinSpecified(reqs.RequiredSkills, ", "),
		"ExperienceLevel":  reqs.ExperienceLevel,
		"Responsibilities": types.JoinSpecified(reqs.Responsibilities, "; "),
		"Education":        reqs.Education,
		"CultureFit":       types.JoinSpecified(reqs.CultureFit, ", "),
		"CandidateName":    c.Name,
		"CVText":           cv,
	}
}
