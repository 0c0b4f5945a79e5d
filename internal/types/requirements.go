// Package types provides type definitions for structured data used throughout the candidate matcher.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "strings"

// NotSpecified is the sentinel used for any requirement field the job
// description does not mention.
const NotSpecified = "Not specified"

// DefaultJobTitle is used when no title could be extracted.
const DefaultJobTitle = "General Position"

// JobRequirements is the structured view of a job description.
// Every string field is non-empty after Normalize and every list has at least one entry.
type JobRequirements struct {
	Title                   string   `json:"job_title"`
	Responsibilities        []string `json:"responsibilities"`
	RequiredSkills          []string `json:"required_skills"`
	ExperienceLevel         string   `json:"experience_level"`
	Education               string   `json:"education"`
	IndustryKnowledge       []string `json:"industry_knowledge"`
	PreferredQualifications []string `json:"preferred_qualifications"`
	WorkEnvironment         string   `json:"work_environment"`
	CultureFit              []string `json:"culture_fit"`
	SalaryRange             string   `json:"salary_range"`
	OriginalDescription     string   `json:"original_description"`
}

// FallbackRequirements returns the record used when extraction fails.
func FallbackRequirements(original string) JobRequirements {
	r := JobRequirements{Title: DefaultJobTitle, OriginalDescription: original}
	r.Normalize()
	return r
}

// Normalize fills blank fields with NotSpecified and drops blank list entries.
func (r *JobRequirements) Normalize() {
	r.Title = orNotSpecified(r.Title)
	r.ExperienceLevel = orNotSpecified(r.ExperienceLevel)
	r.Education = orNotSpecified(r.Education)
	r.WorkEnvironment = orNotSpecified(r.WorkEnvironment)
	r.SalaryRange = orNotSpecified(r.SalaryRange)

	r.Responsibilities = listOrNotSpecified(r.Responsibilities)
	r.RequiredSkills = listOrNotSpecified(r.RequiredSkills)
	r.IndustryKnowledge = listOrNotSpecified(r.IndustryKnowledge)
	r.PreferredQualifications = listOrNotSpecified(r.PreferredQualifications)
	r.CultureFit = listOrNotSpecified(r.CultureFit)
}

// HasTitle reports whether a real title was extracted.
func (r JobRequirements) HasTitle() bool {
	return r.Title != "" && r.Title != NotSpecified && r.Title != DefaultJobTitle
}

// IsSpecified reports whether a field value carries real content.
func IsSpecified(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != NotSpecified
}

// JoinSpecified joins list entries with sep, or returns NotSpecified when
// nothing in the list carries content.
func JoinSpecified(items []string, sep string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if IsSpecified(item) {
			kept = append(kept, strings.TrimSpace(item))
		}
	}
	if len(kept) == 0 {
		return NotSpecified
	}
	return strings.Join(kept, sep)
}

func orNotSpecified(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NotSpecified
	}
	return s
}

func listOrNotSpecified(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{NotSpecified}
	}
	return out
}
