package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/candidate-matcher/internal/llm/llmtest"
	"github.com/jonathan/candidate-matcher/internal/types"
)

func candidate() types.Candidate {
	return types.Candidate{ID: uuid.New(), Name: "Grace Hopper", CVText: "COBOL, compilers, Navy leadership"}
}

func requirements() types.JobRequirements {
	r := types.JobRequirements{Title: "Compiler Engineer", RequiredSkills: []string{"Compilers", "COBOL"}}
	r.Normalize()
	return r
}

func TestAnalyze_Success(t *testing.T) {
	fake := llmtest.Reply(`{
		"match_score": 91,
		"strengths": ["Compiler design"],
		"areas_for_development": ["Cloud"],
		"key_skills_match": ["COBOL"],
		"experience_relevance": "Directly relevant",
		"cultural_fit": "Strong",
		"summary": "Excellent fit"
	}`)

	got, fallback := New(fake, nil).Analyze(context.Background(), candidate(), requirements())

	assert.False(t, fallback)
	assert.Equal(t, 91, got.MatchScore)
	assert.Equal(t, []string{"COBOL"}, got.KeySkillsMatch)
	assert.Equal(t, "Excellent fit", got.Summary)

	prompt := fake.Calls()[0].Prompt()
	assert.Contains(t, prompt, "Grace Hopper")
	assert.Contains(t, prompt, "Compilers, COBOL")
}

func TestAnalyze_ScoreCoercionAndClamping(t *testing.T) {
	tests := []struct {
		reply string
		want  int
	}{
		{`{"match_score": "85", "summary": "ok"}`, 85},
		{`{"matchScore": 140, "summary": "ok"}`, 100},
		{`{"match_score": -3, "summary": "ok"}`, 0},
		{"```json\n{\"match_score\": 64.0, \"summary\": \"ok\"}\n```", 64},
	}
	for _, tt := range tests {
		got, fallback := New(llmtest.Reply(tt.reply), nil).Analyze(context.Background(), candidate(), requirements())
		assert.False(t, fallback, tt.reply)
		assert.Equal(t, tt.want, got.MatchScore, tt.reply)
	}
}

func TestAnalyze_Fallback(t *testing.T) {
	tests := []struct {
		name string
		fake *llmtest.Fake
	}{
		{"provider error", llmtest.Fail(errors.New("503"))},
		{"prose", llmtest.Reply("The candidate seems fine.")},
		{"missing summary", llmtest.Reply(`{"match_score": 50}`)},
		{"bad score", llmtest.Reply(`{"match_score": "high", "summary": "x"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fallback := New(tt.fake, nil).Analyze(context.Background(), candidate(), requirements())
			assert.True(t, fallback)
			assert.Equal(t, types.FallbackAnalysis(), got)
		})
	}
}

func TestAnalyze_LogsFallback(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	New(llmtest.Fail(errors.New("boom")), zap.New(core)).Analyze(context.Background(), candidate(), requirements())

	entries := logs.FilterMessage("match analysis failed, using fallback").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "GENERATION_FAILURE", entries[0].ContextMap()["code"])
}

func TestPromptData_CapsCV(t *testing.T) {
	c := candidate()
	c.CVText = strings.Repeat("experience ", 2000)

	data := PromptData(c, requirements())
	assert.LessOrEqual(t, len([]rune(data["CVText"])), MaxCVChars)

	c.CVText = ""
	assert.Equal(t, "No CV content available", PromptData(c, requirements())["CVText"])
}
