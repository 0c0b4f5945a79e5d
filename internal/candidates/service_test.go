package candidates

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/embedding/embeddingtest"
	"github.com/jonathan/candidate-matcher/internal/matching"
	"github.com/jonathan/candidate-matcher/internal/store/memory"
	"github.com/jonathan/candidate-matcher/internal/types"
)

func newService(t *testing.T) (*Service, *embeddingtest.Fake, *memory.Store) {
	t.Helper()
	emb := embeddingtest.New(3).
		On("Kubernetes", 1, 0, 0).
		On("Terraform", 0.9, 0.1, 0).
		On("Photoshop", 0, 0, 1)
	st := memory.New()
	return New(st, emb, matching.New(emb, st, zap.NewNop()), zap.NewNop()), emb, st
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	svc, emb, _ := newService(t)

	c, err := svc.Add(ctx, NewCandidate{
		Name:   "  Ada  ",
		Email:  "ada@example.com",
		CVText: "<html><body><p>Kubernetes   operator</p></body></html>",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", c.Name)
	assert.Equal(t, "Kubernetes operator", c.CVText)
	assert.Nil(t, c.Embedding)
	assert.Equal(t, []string{"Kubernetes operator"}, emb.Calls())
}

func TestAdd_Validation(t *testing.T) {
	svc, _, _ := newService(t)

	tests := []struct {
		name string
		in   NewCandidate
		want string
	}{
		{"missing name", NewCandidate{CVText: "cv"}, "name is required"},
		{"missing cv", NewCandidate{Name: "A"}, "cv_text is required"},
		{"bad email", NewCandidate{Name: "A", CVText: "cv", Email: "nope"}, "email must be a valid email address"},
		{"bad url", NewCandidate{Name: "A", CVText: "cv", LinkedInURL: "not a url"}, "linkedin_url must be a valid URL"},
		{"blank cv", NewCandidate{Name: "A", CVText: "   \n  "}, "cv_text is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))
			assert.Contains(t, apperrors.UserMessage(err, ""), tt.want)
		})
	}
}

func TestAdd_ZeroEmbeddingIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	emb := embeddingtest.New(3)
	st := memory.New()
	svc := New(st, emb, matching.New(emb, st, zap.NewNop()), zap.New(core))

	_, err := svc.Add(context.Background(), NewCandidate{Name: "Zed", CVText: "unmatched"})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("candidate stored with zero embedding").Len())
}

func TestUpdate_ReembedsOnlyOnCVChange(t *testing.T) {
	ctx := context.Background()
	svc, emb, _ := newService(t)

	c, err := svc.Add(ctx, NewCandidate{Name: "Ada", CVText: "Kubernetes"})
	require.NoError(t, err)

	name := "Ada Lovelace"
	same := "Kubernetes"
	updated, err := svc.Update(ctx, c.ID, types.CandidatePatch{Name: &name, CVText: &same})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Len(t, emb.Calls(), 1)

	cv := "Photoshop"
	updated, err = svc.Update(ctx, c.ID, types.CandidatePatch{CVText: &cv})
	require.NoError(t, err)
	assert.Equal(t, "Photoshop", updated.CVText)
	assert.Len(t, emb.Calls(), 2)
}

func TestUpdate_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	c, err := svc.Add(ctx, NewCandidate{Name: "Ada", CVText: "Kubernetes", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, c.ID, types.CandidatePatch{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))

	bad := "nope"
	_, err = svc.Update(ctx, c.ID, types.CandidatePatch{Email: &bad})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))

	empty := ""
	cleared, err := svc.Update(ctx, c.ID, types.CandidatePatch{Email: &empty})
	require.NoError(t, err)
	assert.Empty(t, cleared.Email)

	_, err = svc.Update(ctx, c.ID, types.CandidatePatch{Name: &empty})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))

	missing := c.ID
	missing[0] ^= 0xff
	name := "x"
	_, err = svc.Update(ctx, missing, types.CandidatePatch{Name: &name})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestSimilarListDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	k8s, err := svc.Add(ctx, NewCandidate{Name: "Ops", CVText: "Kubernetes"})
	require.NoError(t, err)
	tf, err := svc.Add(ctx, NewCandidate{Name: "Infra", CVText: "Terraform"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, NewCandidate{Name: "Designer", CVText: "Photoshop"})
	require.NoError(t, err)

	similar, err := svc.Similar(ctx, k8s.ID, 1)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, tf.ID, similar[0].ID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, svc.Delete(ctx, tf.ID))
	_, err = svc.Get(ctx, tf.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	path := filepath.Join(t.TempDir(), "candidates.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "Ops", "cv_text": "Kubernetes"},
		{"name": "", "cv_text": "no name"},
		{"name": "Infra", "cv_text": "Terraform", "email": "bad"}
	]`), 0o600))

	report, err := svc.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Len(t, report.Imported, 1)
	require.Len(t, report.Failed, 2)
	assert.Equal(t, 1, report.Failed[0].Index)
	assert.Equal(t, 2, report.Failed[1].Index)
	assert.Contains(t, report.Failed[1].Error(), "email")

	_, err = svc.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))

	notArray := filepath.Join(t.TempDir(), "obj.json")
	require.NoError(t, os.WriteFile(notArray, []byte(`{"name":"x"}`), 0o600))
	_, err = svc.ImportFile(ctx, notArray)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))
}
