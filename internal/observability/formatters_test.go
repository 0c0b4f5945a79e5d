package observability

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/candidate-matcher/internal/pipeline"
	"github.com/jonathan/candidate-matcher/internal/types"
)

func TestPrintRequirements(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	reqs := types.JobRequirements{
		Title:          "Senior Engineer",
		RequiredSkills: []string{"Go", "Kubernetes", "SQL", "gRPC", "AWS", "Terraform", "Linux"},
	}
	reqs.Normalize()
	p.PrintRequirements(&reqs)
	output := buf.String()

	assert.Contains(t, output, "JOB REQUIREMENTS")
	assert.Contains(t, output, "Senior Engineer")
	assert.Contains(t, output, "• Go")
	assert.Contains(t, output, "... and 2 more")
	assert.NotContains(t, output, "Responsibilities:")
	assert.Contains(t, output, "Salary:      Not specified")
}

func TestPrintRequirements_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRequirements(nil)
	assert.Empty(t, buf.String())
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	reqs := types.FallbackRequirements("text")
	res := &types.PipelineResult{
		Requirements: reqs,
		Candidates: []types.EnrichedCandidate{{
			ScoredCandidate: types.ScoredCandidate{
				Candidate: types.Candidate{ID: uuid.New(), Name: "Grace", Email: "grace@example.com"},
				Distance:  0.2,
			},
			Analysis: types.MatchAnalysis{MatchScore: 91, Strengths: []string{"COBOL"}},
			Degraded: []types.Stage{types.StageSummary},
		}},
		Summary: "Job Analysis Complete:",
	}
	p.PrintResult(res)
	output := buf.String()

	assert.Contains(t, output, "MATCHED CANDIDATES (1)")
	assert.Contains(t, output, "#1  Grace  (91/100, similarity 80%)")
	assert.Contains(t, output, "Strengths: COBOL")
	assert.Contains(t, output, "defaults used for: summary")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(output), "Job Analysis Complete:"))
}

func TestPrintCandidates_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintCandidates(nil)
	assert.Contains(t, buf.String(), "No matching candidates were found.")
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintProgress(pipeline.ProgressEvent{State: pipeline.StateSearching, Message: "Searching for candidates..."})
	p.PrintProgress(pipeline.ProgressEvent{State: pipeline.StateEnriching, Message: "Grace", Index: 1, Total: 3})
	assert.Equal(t, "→ Searching for candidates...\n  [1/3] Grace\n", buf.String())
}

func TestPrintOutreach_WrapsLongLines(t *testing.T) {
	var buf bytes.Buffer
	c := types.EnrichedCandidate{
		ScoredCandidate: types.ScoredCandidate{Candidate: types.Candidate{Name: "Grace"}},
		Outreach:        types.FallbackOutreach("Grace", "Compiler Engineer"),
	}
	NewPrinter(&buf).PrintOutreach(c)
	output := buf.String()

	assert.Contains(t, output, "OUTREACH: Grace")
	assert.Contains(t, output, "Opportunity for Grace - Compiler Engineer")
	assert.Contains(t, output, "opportunity?")
	for _, line := range strings.Split(strings.TrimSuffix(output, "\n"), "\n") {
		assert.Equal(t, boxWidth, utf8.RuneCountInString(line), line)
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"short"}, wrap("short", 10))
	assert.Equal(t, []string{"one two", "three"}, wrap("one two three", 8))
	assert.Equal(t, []string{"  ab cd", "  ef"}, wrap("  ab cd ef", 7))
	assert.Equal(t, []string{"abcdefg..."}, wrap("abcdefghijklmnop", 10))
}
