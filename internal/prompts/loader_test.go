package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/candidate-matcher/internal/llm"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	tmpl, err := Get("extraction.json", "extract-requirements")
	require.NoError(t, err)
	assert.Contains(t, tmpl.System, "HR analyst")
	assert.Contains(t, tmpl.User, "{{.Description}}")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("matching.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestAllShippedPromptsLoad(t *testing.T) {
	ClearCache()

	files := map[string][]string{
		"extraction.json": {"extract-requirements"},
		"matching.json":   {"analyze-match"},
		"enrichment.json": {"outreach", "profile-summary"},
		"feedback.json":   {"job-description-review", "search-feedback", "selection-review"},
	}
	for file, want := range files {
		keys, err := List(file)
		require.NoError(t, err, file)
		assert.Equal(t, want, keys, file)
		for _, key := range keys {
			assert.NotPanics(t, func() { MustGet(file, key) })
		}
	}
}

func TestFormat(t *testing.T) {
	template := "Hello {{.Name}}, welcome to {{.Company}}! {{.Unknown}}"
	data := map[string]string{
		"Name":    "Alice",
		"Company": "Acme Corp",
	}

	assert.Equal(t, "Hello Alice, welcome to Acme Corp! {{.Unknown}}", Format(template, data))
	assert.Equal(t, "as is", Format("as is", nil))
}

func TestFormat_ValuesAreNotReexpanded(t *testing.T) {
	out := Format("{{.A}} {{.B}}", map[string]string{"A": "{{.B}}", "B": "b"})
	assert.Equal(t, "{{.B}} b", out)
}

func TestTemplate_Messages(t *testing.T) {
	msgs := Template{System: "sys {{.X}}", User: "user {{.X}}"}.Messages(map[string]string{"X": "1"})
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.System("sys 1"), msgs[0])
	assert.Equal(t, llm.User("user 1"), msgs[1])

	msgs = Template{User: "only"}.Messages(nil)
	assert.Equal(t, []llm.Message{llm.User("only")}, msgs)
}
