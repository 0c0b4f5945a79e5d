package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/candidate-matcher/internal/fetch"
	"github.com/jonathan/candidate-matcher/internal/ingestion"
	"github.com/jonathan/candidate-matcher/internal/observability"
)

func (c *cli) matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match JOB_FILE|URL",
		Short: "Run the matching pipeline once for a job description",
		Long: `Reads a job description from a file (plain text or HTML) or downloads it from a job board URL,
extracts its requirements, retrieves the closest candidates and prints the analysis for each.
Nothing is written to a conversation.`,
		Args: cobra.ExactArgs(1),
		RunE: c.runMatch,
	}
	cmd.Flags().IntP("top-k", "k", 10, "Number of candidates to retrieve (1-100)")
	cmd.Flags().Bool("outreach", false, "Also print the outreach drafts for each candidate")
	_ = c.v.BindPFlag("pipeline.top-k", cmd.Flags().Lookup("top-k"))
	return cmd
}

func (c *cli) runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var text string
	if fetch.IsURL(args[0]) {
		posting, err := a.fetcher.JobPosting(ctx, args[0])
		if err != nil {
			return userError(err)
		}
		text = posting.Text
	} else if text, err = ingestion.ReadFile(args[0], 0); err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	result, err := a.pipeline.Run(ctx, text, printer.PrintProgress)
	if err != nil {
		return fmt.Errorf("matching failed: %w", err)
	}

	printer.PrintResult(result)
	if outreach, _ := cmd.Flags().GetBool("outreach"); outreach {
		for _, cand := range result.Candidates {
			printer.PrintOutreach(cand)
		}
	}
	return nil
}
