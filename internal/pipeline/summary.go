package pipeline

import (
	"fmt"
	"strings"

	"github.com/jonathan/candidate-matcher/internal/types"
)

// Summarize builds the aggregate summary of a run. It is deterministic.
func Summarize(reqs types.JobRequirements, candidates []types.EnrichedCandidate) string {
	var sb strings.Builder
	sb.WriteString("Job Analysis Complete:\n\n")
	fmt.Fprintf(&sb, "Position: %s\n", reqs.Title)
	fmt.Fprintf(&sb, "Candidates Found: %d\n", len(candidates))

	if len(candidates) == 0 {
		sb.WriteString("\nNo candidates matched these requirements. Try broadening the job description or adding more candidates to the pool.")
		return sb.String()
	}

	top, avg, scored := scoreStats(candidates)
	if scored > 0 {
		fmt.Fprintf(&sb, "Top Match: %s (%d/100)\n", top.Name, top.Analysis.MatchScore)
		fmt.Fprintf(&sb, "Average Match Score: %d/100\n", avg)
	} else {
		fmt.Fprintf(&sb, "Closest Match: %s (%.0f%% similarity)\n", candidates[0].Name, candidates[0].Similarity()*100)
	}

	sb.WriteString("\nTop candidates have been identified and personalized outreach templates " +
		"have been generated for each. Review the candidate matches and use the " +
		"provided templates to reach out.")
	return sb.String()
}

// scoreStats returns the highest scoring candidate and the rounded average
// score, ignoring candidates whose analysis fell back. Ties keep retrieval
// order.
func scoreStats(candidates []types.EnrichedCandidate) (top types.EnrichedCandidate, avg int, scored int) {
	total := 0
	for _, c := range candidates {
		if c.IsDegradedStage(types.StageAnalysis) {
			continue
		}
		if scored == 0 || c.Analysis.MatchScore > top.Analysis.MatchScore {
			top = c
		}
		total += c.Analysis.MatchScore
		scored++
	}
	if scored > 0 {
		avg = (total + scored/2) / scored
	}
	return top, avg, scored
}
