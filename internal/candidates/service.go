// Package candidates manages the candidate pool: validation, CV cleaning,
// embedding and persistence.
package candidates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/embedding"
	"github.com/jonathan/candidate-matcher/internal/ingestion"
	"github.com/jonathan/candidate-matcher/internal/logger"
	"github.com/jonathan/candidate-matcher/internal/store"
	"github.com/jonathan/candidate-matcher/internal/types"
)

// MaxCVChars bounds the stored CV text.
const MaxCVChars = 50000

// NewCandidate is the input for Add and ImportFile.
type NewCandidate struct {
	Name        string `json:"name" validate:"required,max=200"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,max=50"`
	LinkedInURL string `json:"linkedin_url,omitempty" validate:"omitempty,url"`
	CVText      string `json:"cv_text" validate:"required"`
}

// patchRules validates the non-nil fields of a CandidatePatch.
type patchRules struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=50"`
	LinkedInURL *string `json:"linkedin_url" validate:"omitempty,url"`
	CVText      *string `json:"cv_text" validate:"omitempty,min=1"`
}

// Neighbours finds candidates similar to a stored one.
type Neighbours interface {
	Similar(ctx context.Context, candidateID uuid.UUID, k int) ([]types.ScoredCandidate, error)
}

// Service is the candidate pool API shared by the HTTP server and the CLI.
type Service struct {
	store      store.CandidateStore
	embedder   embedding.Embedder
	neighbours Neighbours
	validate   *validator.Validate
	log        *zap.Logger
}

// New creates a Service.
func New(s store.CandidateStore, embedder embedding.Embedder, neighbours Neighbours, log *zap.Logger) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		store:      s,
		embedder:   embedder,
		neighbours: neighbours,
		validate:   v,
		log:        logger.Named(log, "candidates"),
	}
}

// Add validates, embeds and stores a candidate.
func (s *Service) Add(ctx context.Context, in NewCandidate) (*types.Candidate, error) {
	const op = "candidates.Add"
	in = trimNew(in)
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, ValidationMessage(err), err)
	}

	cv, err := ingestion.Prepare(in.CVText, MaxCVChars)
	if err != nil {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "CV text could not be read", err)
	}
	if cv == "" {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "cv_text is required", nil)
	}

	c, err := s.store.InsertCandidate(ctx, types.Candidate{
		ID:          uuid.New(),
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		LinkedInURL: in.LinkedInURL,
		CVText:      cv,
		Embedding:   s.embed(ctx, in.Name, cv),
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("candidate added", zap.String(logger.FieldCandidate, c.ID.String()))
	out := c.WithoutEmbedding()
	return &out, nil
}

// Update applies patch. The embedding is recomputed only when the CV text
// actually changes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch types.CandidatePatch) (*types.Candidate, error) {
	const op = "candidates.Update"
	patch = trimPatch(patch)
	if patch.IsEmpty() {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "No fields to update", nil)
	}
	if err := s.validate.Struct(rulesFor(patch)); err != nil {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, ValidationMessage(err), err)
	}

	current, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}

	var vec []float32
	if patch.CVText != nil {
		cv, err := ingestion.Prepare(*patch.CVText, MaxCVChars)
		if err != nil || cv == "" {
			return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "CV text could not be read", err)
		}
		if cv == current.CVText {
			patch.CVText = nil
		} else {
			patch.CVText = &cv
			name := current.Name
			if patch.Name != nil {
				name = *patch.Name
			}
			vec = s.embed(ctx, name, cv)
		}
	}

	updated, err := s.store.UpdateCandidate(ctx, id, patch, vec)
	if err != nil {
		return nil, err
	}
	s.log.Info("candidate updated",
		zap.String(logger.FieldCandidate, id.String()),
		zap.Bool("reembedded", vec != nil))
	out := updated.WithoutEmbedding()
	return &out, nil
}

// embed logs when the provider yields a zero vector. The candidate is still
// stored; it ranks last until its CV is updated.
func (s *Service) embed(ctx context.Context, name, cv string) []float32 {
	vec := s.embedder.Embed(ctx, cv)
	if embedding.IsZero(vec) {
		s.log.Warn("candidate stored with zero embedding", zap.String("name", name))
	}
	return vec
}

// Get returns one candidate.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*types.Candidate, error) {
	c, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	out := c.WithoutEmbedding()
	return &out, nil
}

// List returns every candidate without embeddings.
func (s *Service) List(ctx context.Context) ([]types.Candidate, error) {
	cs, err := s.store.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cs {
		cs[i] = cs[i].WithoutEmbedding()
	}
	return cs, nil
}

// Delete removes a candidate.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteCandidate(ctx, id); err != nil {
		return err
	}
	s.log.Info("candidate deleted", zap.String(logger.FieldCandidate, id.String()))
	return nil
}

// Similar returns up to k candidates closest to the given one.
func (s *Service) Similar(ctx context.Context, id uuid.UUID, k int) ([]types.ScoredCandidate, error) {
	return s.neighbours.Similar(ctx, id, k)
}

// ImportError records one rejected record of a bulk import.
type ImportError struct {
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
	Err   error  `json:"-"`
}

func (e ImportError) Error() string {
	return fmt.Sprintf("record %d (%s): %s", e.Index, e.Name, apperrors.UserMessage(e.Err, e.Err.Error()))
}

// ImportReport summarises ImportFile.
type ImportReport struct {
	Imported []types.Candidate `json:"imported"`
	Failed   []ImportError     `json:"failed"`
}

// ImportFile loads a JSON array of NewCandidate records. Invalid records are
// reported and skipped; only unreadable files fail the whole import.
func (s *Service) ImportFile(ctx context.Context, path string) (*ImportReport, error) {
	const op = "candidates.ImportFile"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "candidate file could not be read", err)
	}
	var records []NewCandidate
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "candidate file must be a JSON array", err)
	}

	report := &ImportReport{}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("import canceled after %d records: %w", i, err)
		}
		c, err := s.Add(ctx, rec)
		if err != nil {
			report.Failed = append(report.Failed, ImportError{Index: i, Name: rec.Name, Err: err})
			continue
		}
		report.Imported = append(report.Imported, *c)
	}
	s.log.Info("candidate import finished",
		zap.String("path", path),
		zap.Int("imported", len(report.Imported)),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}

// ValidationMessage renders validator errors as one line for API clients.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid input"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "email":
			parts = append(parts, field+" must be a valid email address")
		case "url":
			parts = append(parts, field+" must be a valid URL")
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// rulesFor skips empty optional fields so a patch can clear them.
func rulesFor(p types.CandidatePatch) patchRules {
	rules := patchRules(p)
	for _, f := range []**string{&rules.Email, &rules.Phone, &rules.LinkedInURL} {
		if *f != nil && **f == "" {
			*f = nil
		}
	}
	return rules
}

func trimNew(in NewCandidate) NewCandidate {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.LinkedInURL = strings.TrimSpace(in.LinkedInURL)
	return in
}

func trimPatch(p types.CandidatePatch) types.CandidatePatch {
	for _, f := range []**string{&p.Name, &p.Email, &p.Phone, &p.LinkedInURL} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
	return p
}
