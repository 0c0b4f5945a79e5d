package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/candidate-matcher/internal/llm"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 10, cfg.Pipeline.TopK)
	assert.Equal(t, 1, cfg.Pipeline.Concurrency)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, "text-embedding-004", cfg.Embedding.Model)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.False(t, cfg.Fetch.Browser)
	assert.Equal(t, 24, cfg.Auth.ExpirationHours)
	assert.False(t, cfg.Auth.Enabled())
}

func TestLoad_FileAndEnv(t *testing.T) {
	content := `
database:
  url: postgres://localhost:5432/matcher
pipeline:
  top-k: 25
  concurrency: 4
llm:
  models:
    standard: gemini-test
server:
  rate-limit:
    burst: 3
`
	path := filepath.Join(t.TempDir(), "candidate-matcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("GEMINI_API_KEY", "key-from-env")
	t.Setenv("CM_PIPELINE_CONCURRENCY", "2")

	v := NewViper()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/matcher", cfg.Database.URL)
	assert.Equal(t, 25, cfg.Pipeline.TopK)
	assert.Equal(t, 2, cfg.Pipeline.Concurrency, "environment overrides the file")
	assert.Equal(t, "key-from-env", cfg.LLM.APIKey)
	assert.Equal(t, 3, cfg.Server.RateLimit.Burst)

	llmCfg := cfg.LLMClientConfig()
	assert.Equal(t, "gemini-test", llmCfg.GetModel(llm.TierStandard))
	require.NoError(t, llmCfg.Validate())
}

func TestReadFile(t *testing.T) {
	t.Run("missing default file is fine", func(t *testing.T) {
		t.Chdir(t.TempDir())
		assert.NoError(t, ReadFile(NewViper(), ""))
	})
	t.Run("missing explicit file fails", func(t *testing.T) {
		err := ReadFile(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})
	t.Run("malformed file fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pipeline: [unclosed"), 0o600))
		assert.Error(t, ReadFile(NewViper(), path))
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
		want string
	}{
		{"top-k too large", "pipeline.top-k", 101, "TopK"},
		{"top-k zero", "pipeline.top-k", 0, "TopK"},
		{"unknown provider", "llm.provider", "openai", "Provider"},
		{"bad dimension", "embedding.dimension", 0, "Dimension"},
		{"bad port", "server.port", 70000, "Port"},
		{"short secret", "auth.jwt-secret", "short", "jwt-secret"},
		{"negative expiration", "auth.expiration-hours", -1, "expiration-hours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViper()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRequireHelpers(t *testing.T) {
	cfg, err := Load(NewViper())
	require.NoError(t, err)
	cfg.LLM.APIKey = ""
	cfg.Database.URL = ""

	assert.Error(t, cfg.RequireAPIKey())
	assert.Error(t, cfg.RequireDatabase())

	cfg.LLM.APIKey = "k"
	cfg.Database.URL = "postgres://x"
	assert.NoError(t, cfg.RequireAPIKey())
	assert.NoError(t, cfg.RequireDatabase())
}
