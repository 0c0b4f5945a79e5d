package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/candidate-matcher/internal/db"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the PostgreSQL schema",
		Long: `Creates the pgvector extension and the candidate, conversation, message and result tables.
The embedding column is sized from embedding.dimension.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.migrate(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Database schema is up to date (embedding dimension %d)\n", c.cfg.Embedding.Dimension)
			return nil
		},
	}
}

func (c *cli) migrate(ctx context.Context) error {
	if err := c.cfg.RequireDatabase(); err != nil {
		return err
	}
	database, err := db.Connect(ctx, c.cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(ctx, c.cfg.Embedding.Dimension); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
