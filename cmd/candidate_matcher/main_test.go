package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/config"
	"github.com/jonathan/candidate-matcher/internal/embedding/embeddingtest"
	"github.com/jonathan/candidate-matcher/internal/llm/llmtest"
	"github.com/jonathan/candidate-matcher/internal/server"
	"github.com/jonathan/candidate-matcher/internal/store/memory"
)

// testDeps shares one in-memory pool across several command invocations.
func testDeps() appOptions {
	return appOptions{
		store:  memory.New(),
		client: llmtest.Fail(errors.New("model unavailable")),
		embedder: embeddingtest.New(2).
			On("golang", 1, 0).
			On("python", 0, 1).
			On("General Position", 1, 0),
	}
}

func execute(t *testing.T, deps appOptions, args ...string) (string, error) {
	t.Helper()
	c := newCLI()
	c.log = zap.NewNop()
	c.deps = deps

	var out bytes.Buffer
	root := c.rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestTokenCommand(t *testing.T) {
	const secret = "a-test-secret-of-32-characters!!"
	cfgPath := writeFile(t, "candidate-matcher.yaml", "auth:\n  jwt-secret: "+secret+"\n")

	out, err := execute(t, appOptions{}, "token", "recruiter", "--config", cfgPath)
	require.NoError(t, err)

	token := strings.TrimSpace(out)
	claims, err := server.NewJWTService(config.JWTConfig{Secret: secret, ExpirationHours: 24}).ValidateToken(token)
	require.NoError(t, err)
	subject, err := claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "recruiter", subject)
}

func TestTokenCommand_NoSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CM_AUTH_JWT_SECRET", "")

	_, err := execute(t, appOptions{}, "token", "recruiter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt-secret is not set")
}

func TestConfigFile_InvalidValue(t *testing.T) {
	cfgPath := writeFile(t, "bad.yaml", "pipeline:\n  top-k: 500\n")

	_, err := execute(t, appOptions{}, "token", "recruiter", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config error")
}

func TestCandidatesCommands(t *testing.T) {
	deps := testDeps()

	out, err := execute(t, deps, "candidates", "add", "--name", "Ada", "--email", "ada@example.com",
		"--cv", writeFile(t, "ada.txt", "Ten years of golang services."))
	require.NoError(t, err)
	assert.Contains(t, out, "Added candidate Ada")

	importPath := writeFile(t, "pool.json", `[
		{"name": "Bob", "cv_text": "golang and some python"},
		{"name": "Cy", "cv_text": "python data pipelines"},
		{"name": "", "cv_text": "nameless"}
	]`)
	out, err = execute(t, deps, "candidates", "import", importPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 candidates")
	assert.Contains(t, out, "skipped record 2")

	out, err = execute(t, deps, "candidates", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "CANDIDATES (3)")

	list, err := deps.store.ListCandidates(t.Context())
	require.NoError(t, err)
	var adaID string
	for _, cand := range list {
		if cand.Name == "Ada" {
			adaID = cand.ID.String()
		}
	}
	require.NotEmpty(t, adaID)

	out, err = execute(t, deps, "candidates", "similar", adaID, "--limit", "5")
	require.NoError(t, err)
	require.Contains(t, out, "Bob")
	require.Contains(t, out, "Cy")
	assert.Less(t, strings.Index(out, "Bob"), strings.Index(out, "Cy"))
	assert.NotContains(t, out, "Ada")

	out, err = execute(t, deps, "candidates", "delete", adaID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted candidate "+adaID)

	_, err = execute(t, deps, "candidates", "delete", adaID)
	require.Error(t, err)
}

func TestCandidatesAdd_ValidationMessage(t *testing.T) {
	_, err := execute(t, testDeps(), "candidates", "add", "--name", "Ada", "--email", "not-an-email",
		"--cv", writeFile(t, "cv.txt", "golang"))
	require.Error(t, err)
	assert.Equal(t, "email must be a valid email address", err.Error())
}

func TestCandidatesImport_AllInvalid(t *testing.T) {
	_, err := execute(t, testDeps(), "candidates", "import", writeFile(t, "pool.json", `[{"name": "x"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates imported")
}

func TestMatchCommand_DegradesWhenModelFails(t *testing.T) {
	deps := testDeps()
	_, err := execute(t, deps, "candidates", "add", "--name", "Ada", "--cv", writeFile(t, "ada.txt", "golang"))
	require.NoError(t, err)

	job := writeFile(t, "job.html", "<html><body><h1>Backend Engineer</h1><p>Build services.</p></body></html>")
	out, err := execute(t, deps, "match", job, "--outreach")
	require.NoError(t, err)

	assert.Contains(t, out, "→ ")
	assert.Contains(t, out, "JOB REQUIREMENTS")
	assert.Contains(t, out, "#1  Ada")
	assert.Contains(t, out, "defaults used for: analysis, summary, outreach")
	assert.Contains(t, out, "OUTREACH: Ada")
}

func TestMatchCommand_MissingFile(t *testing.T) {
	_, err := execute(t, testDeps(), "match", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestBuildApp_RequiresDatabaseAndKey(t *testing.T) {
	cfg := &config.Config{}
	_, err := buildApp(t.Context(), cfg, zap.NewNop(), appOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")

	_, err = buildApp(t.Context(), cfg, zap.NewNop(), appOptions{inMemory: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestMatchCommand_FromURL(t *testing.T) {
	board := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="job-description"><h1>Platform Engineer</h1></div></body></html>`))
	}))
	defer board.Close()

	deps := testDeps()
	_, err := execute(t, deps, "candidates", "add", "--name", "Ada", "--cv", writeFile(t, "ada.txt", "golang"))
	require.NoError(t, err)

	out, err := execute(t, deps, "match", board.URL+"/jobs/1")
	require.NoError(t, err)
	assert.Contains(t, out, "#1  Ada")

	_, err = execute(t, deps, "match", "https://127.0.0.1:1/closed")
	require.Error(t, err)
	assert.Equal(t, "Job posting could not be downloaded", err.Error())
}
