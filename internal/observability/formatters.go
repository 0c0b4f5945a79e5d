// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/candidate-matcher/internal/pipeline"
	"github.com/jonathan/candidate-matcher/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

// wrap breaks line at spaces so no part exceeds width runes. Words longer
// than width are clipped.
func wrap(line string, width int) []string {
	if utf8.RuneCountInString(line) <= width {
		return []string{line}
	}
	indent := line[:len(line)-len(strings.TrimLeft(line, " "))]
	var parts []string
	cur := ""
	for _, word := range strings.Fields(line) {
		switch {
		case cur == "":
			cur = indent + word
		case utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(word) <= width:
			cur += " " + word
		default:
			parts = append(parts, clip(cur, width))
			cur = indent + word
		}
	}
	return append(parts, clip(cur, width))
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	inner := boxWidth - 4
	pad := func(s string) string {
		return s + strings.Repeat(" ", max(0, inner-utf8.RuneCountInString(s)))
	}

	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(clip(title, inner)))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		for _, part := range wrap(line, inner) {
			fmt.Fprintf(p.out, "│ %s │\n", pad(part))
		}
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// writeList writes up to limit items as bullets.
func writeList(sb *strings.Builder, label string, items []string, limit int) {
	if !types.IsSpecified(types.JoinSpecified(items, "")) {
		return
	}
	sb.WriteString(label + ":\n")
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		fmt.Fprintf(sb, "  • %s\n", items[i])
	}
	if len(items) > limit {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-limit)
	}
	sb.WriteString("\n")
}

// PrintRequirements outputs a human-readable summary of the extracted requirements.
func (p *Printer) PrintRequirements(r *types.JobRequirements) {
	if r == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title:       %s\n", r.Title)
	fmt.Fprintf(&sb, "Experience:  %s\n", r.ExperienceLevel)
	fmt.Fprintf(&sb, "Education:   %s\n", r.Education)
	fmt.Fprintf(&sb, "Environment: %s\n", r.WorkEnvironment)
	fmt.Fprintf(&sb, "Salary:      %s\n", r.SalaryRange)
	sb.WriteString("\n")

	writeList(&sb, "Required Skills", r.RequiredSkills, maxItemsToShow)
	writeList(&sb, "Responsibilities", r.Responsibilities, maxItemsToShow)
	writeList(&sb, "Preferred", r.PreferredQualifications, 3)

	p.printBox("JOB REQUIREMENTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResult outputs requirements, ranked candidates and the summary of a run.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintResult(res *types.PipelineResult) {
	if res == nil {
		return
	}
	p.PrintRequirements(&res.Requirements)
	p.PrintCandidates(res.Candidates)
	if res.Summary != "" {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, res.Summary)
	}
}

// PrintCandidates outputs enriched candidates with their analysis.
func (p *Printer) PrintCandidates(cs []types.EnrichedCandidate) {
	if len(cs) == 0 {
		p.printBox("MATCHED CANDIDATES", "No matching candidates were found.")
		return
	}

	var sb strings.Builder
	for i, c := range cs {
		fmt.Fprintf(&sb, "#%d  %s  (%d/100, similarity %.0f%%)\n", i+1, c.Name, c.Analysis.MatchScore, c.Similarity()*100)
		if c.Email != "" {
			fmt.Fprintf(&sb, "    Email: %s\n", c.Email)
		}
		if len(c.Analysis.Strengths) > 0 {
			fmt.Fprintf(&sb, "    Strengths: %s\n", strings.Join(c.Analysis.Strengths, ", "))
		}
		if len(c.Analysis.AreasForDevelopment) > 0 {
			fmt.Fprintf(&sb, "    To develop: %s\n", strings.Join(c.Analysis.AreasForDevelopment, ", "))
		}
		if c.IsDegraded() {
			stages := make([]string, len(c.Degraded))
			for j, s := range c.Degraded {
				stages[j] = string(s)
			}
			fmt.Fprintf(&sb, "    (defaults used for: %s)\n", strings.Join(stages, ", "))
		}
		if i < len(cs)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox(fmt.Sprintf("MATCHED CANDIDATES (%d)", len(cs)), sb.String())
}

// PrintScoredCandidates outputs plain retrieval hits, e.g. similar candidates.
func (p *Printer) PrintScoredCandidates(title string, cs []types.ScoredCandidate) {
	if len(cs) == 0 {
		p.printBox(title, "No candidates found.")
		return
	}
	var sb strings.Builder
	for i, c := range cs {
		fmt.Fprintf(&sb, "#%d  %s  similarity %.0f%%  %s\n", i+1, c.Name, c.Similarity()*100, c.ID)
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCandidateList outputs the candidate pool.
func (p *Printer) PrintCandidateList(cs []types.Candidate) {
	if len(cs) == 0 {
		p.printBox("CANDIDATES", "The candidate pool is empty.")
		return
	}
	var sb strings.Builder
	for _, c := range cs {
		contact := c.Email
		if contact == "" {
			contact = c.Phone
		}
		fmt.Fprintf(&sb, "%s  %s  %s\n", c.ID, c.Name, contact)
	}
	p.printBox(fmt.Sprintf("CANDIDATES (%d)", len(cs)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProgress prints one pipeline progress line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(ev pipeline.ProgressEvent) {
	if ev.Total > 0 && ev.Index > 0 {
		fmt.Fprintf(p.out, "  [%d/%d] %s\n", ev.Index, ev.Total, ev.Message)
		return
	}
	fmt.Fprintf(p.out, "→ %s\n", ev.Message)
}

// PrintOutreach outputs the outreach drafts for one candidate.
func (p *Printer) PrintOutreach(c types.EnrichedCandidate) {
	o := c.Outreach
	var sb strings.Builder
	fmt.Fprintf(&sb, "Subject: %s\n\n%s\n\n", o.Email.Subject, o.Email.Body)
	fmt.Fprintf(&sb, "LinkedIn:\n%s\n\n", o.LinkedIn.Message)
	fmt.Fprintf(&sb, "Phone:\n%s\n%s\n%s\n", o.Phone.Opening, o.Phone.Introduction, o.Phone.ValueProposition)
	for _, q := range o.Phone.Questions {
		fmt.Fprintf(&sb, "  ? %s\n", q)
	}
	sb.WriteString(o.Phone.NextSteps)
	p.printBox("OUTREACH: "+c.Name, sb.String())
}
