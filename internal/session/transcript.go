package session

import (
	"fmt"
	"strings"

	"github.com/jonathan/candidate-matcher/internal/types"
)

// MaxTitleRunes is the longest conversation title kept before truncation.
const MaxTitleRunes = 100

// TruncateTitle caps a title at MaxTitleRunes runes, appending "..." when cut.
func TruncateTitle(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= MaxTitleRunes {
		return s
	}
	return string(runes[:MaxTitleRunes]) + "..."
}

const notProvided = "Not provided"

// RenderTranscript formats a pipeline result as the Markdown assistant message.
func RenderTranscript(result *types.PipelineResult) string {
	if result == nil {
		return "I couldn't process your request. Please try again."
	}
	reqs := result.Requirements

	var sb strings.Builder
	sb.WriteString("# Job Analysis Results\n\n")

	sb.WriteString("## Job Requirements\n")
	fmt.Fprintf(&sb, "- **Title**: %s\n", orNotSpecified(reqs.Title))
	fmt.Fprintf(&sb, "- **Experience Level**: %s\n", orNotSpecified(reqs.ExperienceLevel))
	fmt.Fprintf(&sb, "- **Education**: %s\n", orNotSpecified(reqs.Education))
	fmt.Fprintf(&sb, "- **Key Skills**: %s\n", types.JoinSpecified(reqs.RequiredSkills, ", "))
	fmt.Fprintf(&sb, "- **Responsibilities**: %s\n", types.JoinSpecified(reqs.Responsibilities, "; "))
	if types.IsSpecified(reqs.WorkEnvironment) {
		fmt.Fprintf(&sb, "- **Work Environment**: %s\n", reqs.WorkEnvironment)
	}
	if types.IsSpecified(reqs.SalaryRange) {
		fmt.Fprintf(&sb, "- **Salary Range**: %s\n", reqs.SalaryRange)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "## Candidates Found (%d)\n\n", len(result.Candidates))
	if len(result.Candidates) == 0 {
		sb.WriteString("No matching candidates were found in the candidate pool.\n\n")
	}
	for i, c := range result.Candidates {
		renderCandidate(&sb, i+1, c)
	}

	if s := strings.TrimSpace(result.Summary); s != "" {
		sb.WriteString("---\n\n")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func renderCandidate(sb *strings.Builder, n int, c types.EnrichedCandidate) {
	fmt.Fprintf(sb, "### %d. %s\n", n, c.Name)
	fmt.Fprintf(sb, "- **Email**: %s\n", orNotProvided(c.Email))
	fmt.Fprintf(sb, "- **Phone**: %s\n", orNotProvided(c.Phone))
	fmt.Fprintf(sb, "- **LinkedIn**: %s\n", orNotProvided(c.LinkedInURL))
	fmt.Fprintf(sb, "- **Similarity**: %.1f%%\n", c.Similarity()*100)
	fmt.Fprintf(sb, "- **Match Score**: %d/100\n", c.Analysis.MatchScore)
	fmt.Fprintf(sb, "- **Profile Summary**: %s\n", c.ProfileSummary)

	a := c.Analysis
	sb.WriteString("- **Match Analysis**:\n")
	fmt.Fprintf(sb, "  - Strengths: %s\n", joinOrNA(a.Strengths))
	fmt.Fprintf(sb, "  - Key Skills Match: %s\n", joinOrNA(a.KeySkillsMatch))
	fmt.Fprintf(sb, "  - Areas for Development: %s\n", joinOrNA(a.AreasForDevelopment))
	fmt.Fprintf(sb, "  - Experience Relevance: %s\n", orNA(a.ExperienceRelevance))
	fmt.Fprintf(sb, "  - Cultural Fit: %s\n", orNA(a.CulturalFit))
	fmt.Fprintf(sb, "  - Summary: %s\n", orNA(a.Summary))

	o := c.Outreach
	sb.WriteString("- **Contact Recommendations**:\n")
	fmt.Fprintf(sb, "  - **Email Subject**: %s\n", o.Email.Subject)
	fmt.Fprintf(sb, "  - **Email Body**: %s\n", o.Email.Body)
	fmt.Fprintf(sb, "  - **LinkedIn Message**: %s\n", o.LinkedIn.Message)
	sb.WriteString("  - **Phone Script**:\n")
	fmt.Fprintf(sb, "    - Opening: %s\n", o.Phone.Opening)
	fmt.Fprintf(sb, "    - Introduction: %s\n", o.Phone.Introduction)
	fmt.Fprintf(sb, "    - Value Proposition: %s\n", o.Phone.ValueProposition)
	fmt.Fprintf(sb, "    - Questions: %s\n", joinOrNA(o.Phone.Questions))
	fmt.Fprintf(sb, "    - Next Steps: %s\n", o.Phone.NextSteps)

	if c.IsDegraded() {
		stages := make([]string, len(c.Degraded))
		for i, s := range c.Degraded {
			stages[i] = string(s)
		}
		fmt.Fprintf(sb, "- _Generated with defaults for: %s_\n", strings.Join(stages, ", "))
	}
	sb.WriteString("\n")
}

func orNotSpecified(s string) string {
	if !types.IsSpecified(s) {
		return types.NotSpecified
	}
	return s
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return notProvided
	}
	return s
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func joinOrNA(items []string) string {
	if len(items) == 0 {
		return "N/A"
	}
	return strings.Join(items, ", ")
}
