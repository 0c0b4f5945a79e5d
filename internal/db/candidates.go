package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/store"
	"github.com/jonathan/candidate-matcher/internal/types"
)

// -----------------------------------------------------------------------------
// Candidate Methods
// -----------------------------------------------------------------------------

const candidateColumns = `id, name, email, phone, linkedin_url, cv_text, created_at, updated_at`

func scanCandidate(row pgx.Row) (*types.Candidate, error) {
	var c types.Candidate
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.LinkedInURL, &c.CVText, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertCandidate stores a candidate with its embedding.
func (db *DB) InsertCandidate(ctx context.Context, c types.Candidate) (*types.Candidate, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	out, err := scanCandidate(db.pool.QueryRow(ctx,
		`INSERT INTO candidates (id, name, email, phone, linkedin_url, cv_text, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+candidateColumns,
		c.ID, c.Name, c.Email, c.Phone, c.LinkedInURL, c.CVText, vectorParam(c.Embedding),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert candidate: %w", err)
	}
	return out, nil
}

// UpdateCandidate applies a partial update. Nil patch fields and a nil
// embedding keep their stored values.
func (db *DB) UpdateCandidate(ctx context.Context, id uuid.UUID, patch types.CandidatePatch, embedding []float32) (*types.Candidate, error) {
	out, err := scanCandidate(db.pool.QueryRow(ctx,
		`UPDATE candidates SET
		     name = COALESCE($2, name),
		     email = COALESCE($3, email),
		     phone = COALESCE($4, phone),
		     linkedin_url = COALESCE($5, linkedin_url),
		     cv_text = COALESCE($6, cv_text),
		     embedding = COALESCE($7, embedding),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+candidateColumns,
		id, patch.Name, patch.Email, patch.Phone, patch.LinkedInURL, patch.CVText, vectorParam(embedding),
	))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("db.UpdateCandidate", "candidate", id)
		}
		return nil, fmt.Errorf("failed to update candidate: %w", err)
	}
	return out, nil
}

// GetCandidate retrieves a candidate by ID
func (db *DB) GetCandidate(ctx context.Context, id uuid.UUID) (*types.Candidate, error) {
	out, err := scanCandidate(db.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("db.GetCandidate", "candidate", id)
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return out, nil
}

// ListCandidates returns all candidates, newest first
func (db *DB) ListCandidates(ctx context.Context) ([]types.Candidate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+candidateColumns+` FROM candidates ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var out []types.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// DeleteCandidate removes a candidate
func (db *DB) DeleteCandidate(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("db.DeleteCandidate", "candidate", id)
	}
	return nil
}

// Search returns the k nearest candidates by cosine distance.
func (db *DB) Search(ctx context.Context, vector []float32, k int) ([]types.ScoredCandidate, error) {
	if len(vector) == 0 {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, "db.Search", "query vector is empty", nil)
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+candidateColumns+`, `+distanceExpr("$1")+` AS distance
		 FROM candidates
		 WHERE embedding IS NOT NULL
		 ORDER BY distance, id
		 LIMIT $2`,
		vectorParam(vector), store.ClampLimit(k),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search candidates: %w", err)
	}
	return collectScored(rows)
}

// SearchExcluding ranks candidates against the anchor candidate's embedding.
func (db *DB) SearchExcluding(ctx context.Context, anchorID uuid.UUID, k int) ([]types.ScoredCandidate, error) {
	const op = "db.SearchExcluding"

	var hasEmbedding bool
	err := db.pool.QueryRow(ctx,
		`SELECT embedding IS NOT NULL FROM candidates WHERE id = $1`, anchorID,
	).Scan(&hasEmbedding)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(op, "candidate", anchorID)
		}
		return nil, fmt.Errorf("failed to load anchor candidate: %w", err)
	}
	if !hasEmbedding {
		return nil, apperrors.E(apperrors.CodeInvalidState, op, "candidate has no embedding", nil)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+candidateColumns+`,
		        `+distanceExpr("(SELECT embedding FROM candidates WHERE id = $1)")+` AS distance
		 FROM candidates
		 WHERE id <> $1 AND embedding IS NOT NULL
		 ORDER BY distance, id
		 LIMIT $2`,
		anchorID, store.ClampLimit(k),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar candidates: %w", err)
	}
	return collectScored(rows)
}

// distanceExpr is the cosine distance to query. pgvector yields NaN when
// either side has zero norm; those rows get distance 1, matching the
// in-memory index.
func distanceExpr(query string) string {
	return "COALESCE(NULLIF(embedding <=> " + query + ", 'NaN'::float8), 1)"
}

func collectScored(rows pgx.Rows) ([]types.ScoredCandidate, error) {
	defer rows.Close()

	var out []types.ScoredCandidate
	for rows.Next() {
		var s types.ScoredCandidate
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.LinkedInURL, &s.CVText,
			&s.CreatedAt, &s.UpdatedAt, &s.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search hits: %w", err)
	}
	return out, nil
}
