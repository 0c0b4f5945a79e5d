// Package feedback answers recruiter follow-ups about a finished candidate
// search. Replies are advisory text; failures yield a fixed apology.
package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/ingestion"
	"github.com/jonathan/candidate-matcher/internal/llm"
	"github.com/jonathan/candidate-matcher/internal/logger"
	"github.com/jonathan/candidate-matcher/internal/prompts"
	"github.com/jonathan/candidate-matcher/internal/types"
)

// Fixed replies used when the model cannot answer.
const (
	ApologyFeedback = "I apologize, but I'm unable to provide detailed feedback at the moment. " +
		"Please try rephrasing your request or provide more specific information about what kind of feedback you're looking for."
	ApologySelection      = "Unable to provide candidate selection feedback at this time."
	ApologyJobDescription = "Unable to provide job description feedback at this time."
)

const maxDescriptionChars = 12000

// Responder generates feedback with the LLM.
type Responder struct {
	client llm.Client
	log    *zap.Logger
}

// New creates a Responder.
func New(client llm.Client, log *zap.Logger) *Responder {
	return &Responder{client: client, log: logger.Named(log, "feedback")}
}

// Respond answers free-text feedback about a stored search result.
func (r *Responder) Respond(ctx context.Context, result *types.PipelineResult, text string) string {
	if result == nil {
		return ApologyFeedback
	}
	reqs := result.Requirements
	return r.generate(ctx, "search-feedback", map[string]string{
		"JobTitle":        reqs.Title,
		"RequiredSkills":  types.JoinSpecified(reqs.RequiredSkills, ", "),
		"ExperienceLevel": reqs.ExperienceLevel,
		"Candidates":      CandidateLines(result.Candidates),
		"Feedback":        strings.TrimSpace(text),
	}, ApologyFeedback)
}

// ReviewSelection assesses a shortlist drawn from a stored search result.
// Unknown ids are ignored.
func (r *Responder) ReviewSelection(ctx context.Context, result *types.PipelineResult, selected []uuid.UUID, notes string) string {
	if result == nil {
		return ApologySelection
	}
	picked := make(map[uuid.UUID]bool, len(selected))
	for _, id := range selected {
		picked[id] = true
	}
	var in, out []types.EnrichedCandidate
	for _, c := range result.Candidates {
		if picked[c.ID] {
			in = append(in, c)
		} else {
			out = append(out, c)
		}
	}
	if len(in) == 0 {
		return "None of the selected candidates were part of the latest search. Select candidates from the results to get a review."
	}
	if strings.TrimSpace(notes) == "" {
		notes = "None"
	}
	return r.generate(ctx, "selection-review", map[string]string{
		"JobTitle": result.Requirements.Title,
		"Selected": CandidateLines(in),
		"Others":   CandidateLines(out),
		"Notes":    notes,
	}, ApologySelection)
}

// ReviewJobDescription suggests improvements to a job advertisement.
func (r *Responder) ReviewJobDescription(ctx context.Context, description string) string {
	cleaned, err := ingestion.Prepare(description, maxDescriptionChars)
	if err != nil || cleaned == "" {
		return ApologyJobDescription
	}
	return r.generate(ctx, "job-description-review", map[string]string{"Description": cleaned}, ApologyJobDescription)
}

func (r *Responder) generate(ctx context.Context, key string, data map[string]string, apology string) string {
	if r.client == nil {
		return apology
	}
	tmpl := prompts.MustGet("feedback.json", key)
	reply, err := r.client.Complete(ctx, tmpl.Messages(data), llm.Options{Tier: llm.TierStandard})
	if err == nil {
		reply = strings.TrimSpace(reply)
		if reply != "" {
			return reply
		}
		err = fmt.Errorf("empty reply")
	}
	r.log.Warn("feedback generation failed",
		zap.String("prompt", key),
		zap.String("code", string(apperrors.CodeGeneration)),
		zap.Error(err))
	return apology
}

// CandidateLines renders one numbered block per candidate for prompts.
func CandidateLines(cs []types.EnrichedCandidate) string {
	if len(cs) == 0 {
		return "None"
	}
	var sb strings.Builder
	for i, c := range cs {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c.Name)
		fmt.Fprintf(&sb, "   - Similarity: %.1f%%\n", c.Similarity()*100)
		if c.IsDegradedStage(types.StageAnalysis) {
			sb.WriteString("   - Match analysis: Not analyzed\n")
			continue
		}
		fmt.Fprintf(&sb, "   - Match Score: %d/100\n", c.Analysis.MatchScore)
		fmt.Fprintf(&sb, "   - Key Skills: %s\n", orNA(types.JoinSpecified(c.Analysis.KeySkillsMatch, ", ")))
		fmt.Fprintf(&sb, "   - Experience: %s\n", orNA(c.Analysis.ExperienceRelevance))
		fmt.Fprintf(&sb, "   - Summary: %s\n", orNA(c.Analysis.Summary))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func orNA(s string) string {
	if !types.IsSpecified(s) {
		return "Not analyzed"
	}
	return s
}
