package types

// AnalysisUnavailable is the placeholder text used by the fallback analysis.
const AnalysisUnavailable = "Analysis unavailable"

// MatchAnalysis is the LLM's assessment of one candidate against one job.
type MatchAnalysis struct {
	MatchScore          int      `json:"match_score"`
	Strengths           []string `json:"strengths"`
	AreasForDevelopment []string `json:"areas_for_development"`
	KeySkillsMatch      []string `json:"key_skills_match"`
	ExperienceRelevance string   `json:"experience_relevance"`
	CulturalFit         string   `json:"cultural_fit"`
	Summary             string   `json:"summary"`
}

// FallbackAnalysis is returned when the analysis could not be produced.
func FallbackAnalysis() MatchAnalysis {
	return MatchAnalysis{
		MatchScore:          0,
		Strengths:           []string{AnalysisUnavailable},
		AreasForDevelopment: []string{AnalysisUnavailable},
		KeySkillsMatch:      []string{AnalysisUnavailable},
		ExperienceRelevance: AnalysisUnavailable,
		CulturalFit:         AnalysisUnavailable,
		Summary:             "Unable to generate match analysis",
	}
}

// ClampScore keeps a score within 0..100.
func ClampScore(score int) int {
	return max(0, min(100, score))
}
