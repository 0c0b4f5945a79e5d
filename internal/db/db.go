// Package db provides PostgreSQL storage for candidates, conversations and
// pipeline results. Candidate embeddings live in a pgvector column and are
// ranked with the cosine distance operator.
package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/jonathan/candidate-matcher/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("database URL is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Migrate creates the extensions, tables and indexes. It is idempotent.
func (db *DB) Migrate(ctx context.Context, dimension int) error {
	ddl, err := SchemaSQL(dimension)
	if err != nil {
		return err
	}
	if _, err := db.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// SchemaSQL returns the DDL with the embedding dimension filled in.
func SchemaSQL(dimension int) (string, error) {
	if dimension <= 0 || dimension > 16000 {
		return "", fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	return strings.ReplaceAll(schemaSQL, "{{DIMENSION}}", strconv.Itoa(dimension)), nil
}

// vectorParam converts an embedding into a query parameter. Empty embeddings
// become NULL.
func vectorParam(vec []float32) any {
	if len(vec) == 0 {
		return nil
	}
	return pgvector.NewVector(vec)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
