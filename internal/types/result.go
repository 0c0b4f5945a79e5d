package types

import (
	"time"

	"github.com/google/uuid"
)

// Stage names a per-candidate enrichment step.
type Stage string

const (
	StageAnalysis Stage = "analysis"
	StageSummary  Stage = "summary"
	StageOutreach Stage = "outreach"
)

// EnrichedCandidate is a retrieval hit plus everything generated for it.
// Degraded lists the stages that fell back to their default content.
type EnrichedCandidate struct {
	ScoredCandidate
	Analysis       MatchAnalysis     `json:"match_analysis"`
	ProfileSummary string            `json:"profile_summary"`
	Outreach       OutreachTemplates `json:"outreach"`
	Degraded       []Stage           `json:"degraded,omitempty"`
}

// IsDegraded reports whether any stage fell back.
func (e EnrichedCandidate) IsDegraded() bool {
	return len(e.Degraded) > 0
}

// IsDegradedStage reports whether the given stage fell back.
func (e EnrichedCandidate) IsDegradedStage(stage Stage) bool {
	for _, s := range e.Degraded {
		if s == stage {
			return true
		}
	}
	return false
}

// PipelineResult is the terminal output of one pipeline run.
type PipelineResult struct {
	Requirements JobRequirements     `json:"requirements"`
	Candidates   []EnrichedCandidate `json:"candidates"`
	Summary      string              `json:"summary"`
	CompletedAt  time.Time           `json:"completed_at"`
}

// StoredResult is a pipeline result persisted next to the assistant message
// that rendered it.
type StoredResult struct {
	MessageID      uuid.UUID      `json:"message_id"`
	ConversationID uuid.UUID      `json:"conversation_id"`
	Result         PipelineResult `json:"result"`
	CreatedAt      time.Time      `json:"created_at"`
}
