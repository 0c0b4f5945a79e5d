// Package enrichment writes the narrative profile summary and the outreach
// templates for a matched candidate.
package enrichment

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/analysis"
	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/llm"
	"github.com/jonathan/candidate-matcher/internal/logger"
	"github.com/jonathan/candidate-matcher/internal/prompts"
	"github.com/jonathan/candidate-matcher/internal/schemas"
	"github.com/jonathan/candidate-matcher/internal/types"
)

// Enricher generates per-candidate summaries and outreach.
type Enricher struct {
	client llm.Client
	log    *zap.Logger
}

// New creates an Enricher.
func New(client llm.Client, log *zap.Logger) *Enricher {
	return &Enricher{client: client, log: logger.Named(log, "enrichment")}
}

// FallbackSummary is used when no summary could be generated.
func FallbackSummary(name string) string {
	return fmt.Sprintf("Unable to generate detailed summary for %s. Please review CV content directly.", name)
}

// Summarize returns a short narrative about the candidate tailored to the
// job. The bool reports whether the fallback was used.
func (e *Enricher) Summarize(ctx context.Context, c types.Candidate, reqs types.JobRequirements) (string, bool) {
	summary, err := e.summarize(ctx, c, reqs)
	if err != nil {
		e.warn("profile summary failed, using fallback", c, err)
		return FallbackSummary(c.Name), true
	}
	return summary, false
}

func (e *Enricher) summarize(ctx context.Context, c types.Candidate, reqs types.JobRequirements) (string, error) {
	if e.client == nil {
		return "", fmt.Errorf("no LLM client configured")
	}
	tmpl := prompts.MustGet("enrichment.json", "profile-summary")
	reply, err := e.client.Complete(ctx, tmpl.Messages(analysis.PromptData(c, reqs)), llm.Options{
		Tier:        llm.TierLite,
		Temperature: llm.Temperature(0.5),
		MaxTokens:   400,
	})
	if err != nil {
		return "", fmt.Errorf("LLM generation failed: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("empty summary")
	}
	return reply, nil
}

// BuildOutreach returns email, LinkedIn and phone templates for the
// candidate. Fields the model leaves out are filled from the fallback
// templates so no field is ever empty. The bool reports whether the reply
// was discarded entirely.
func (e *Enricher) BuildOutreach(ctx context.Context, c types.Candidate, reqs types.JobRequirements, a types.MatchAnalysis) (types.OutreachTemplates, bool) {
	fallback := types.FallbackOutreach(c.Name, reqs.Title)

	templates, err := e.buildOutreach(ctx, c, reqs, a)
	if err != nil {
		e.warn("outreach generation failed, using fallback", c, err)
		return fallback, true
	}
	return templates.FillFrom(fallback), false
}

func (e *Enricher) buildOutreach(ctx context.Context, c types.Candidate, reqs types.JobRequirements, a types.MatchAnalysis) (types.OutreachTemplates, error) {
	if e.client == nil {
		return types.OutreachTemplates{}, fmt.Errorf("no LLM client configured")
	}

	tmpl := prompts.MustGet("enrichment.json", "outreach")
	reply, err := e.client.Complete(ctx, tmpl.Messages(map[string]string{
		"CandidateName": c.Name,
		"JobTitle":      reqs.Title,
		"MatchSummary":  a.Summary,
		"Strengths":     types.JoinSpecified(a.Strengths, ", "),
		"MatchedSkills": types.JoinSpecified(a.KeySkillsMatch, ", "),
	}), llm.Options{
		Tier:        llm.TierLite,
		Temperature: llm.Temperature(0.7),
		JSON:        true,
	})
	if err != nil {
		return types.OutreachTemplates{}, fmt.Errorf("LLM generation failed: %w", err)
	}

	obj, err := llm.ParseJSON(reply)
	if err != nil {
		return types.OutreachTemplates{}, fmt.Errorf("%w (content: %s)", err, logger.Truncate(reply, 200))
	}
	if err := schemas.ValidateValue(schemas.Outreach, obj); err != nil {
		return types.OutreachTemplates{}, err
	}

	var out types.OutreachTemplates
	if err := llm.DecodeMap(obj, &out); err != nil {
		return types.OutreachTemplates{}, err
	}
	return out, nil
}

func (e *Enricher) warn(msg string, c types.Candidate, err error) {
	e.log.Warn(msg,
		zap.String(logger.FieldCandidate, c.ID.String()),
		zap.String("code", string(apperrors.CodeGeneration)),
		zap.Error(err))
}
