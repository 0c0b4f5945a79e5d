package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/candidates"
	"github.com/jonathan/candidate-matcher/internal/matching"
	"github.com/jonathan/candidate-matcher/internal/observability"
)

func (c *cli) candidatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "candidates",
		Aliases: []string{"candidate"},
		Short:   "Manage the candidate pool",
	}
	cmd.AddCommand(
		c.candidatesAddCmd(),
		c.candidatesImportCmd(),
		c.candidatesListCmd(),
		c.candidatesSimilarCmd(),
		c.candidatesDeleteCmd(),
	)
	return cmd
}

func (c *cli) candidatesAddCmd() *cobra.Command {
	var (
		in     candidates.NewCandidate
		cvFile string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add one candidate from a CV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cv, err := os.ReadFile(cvFile)
			if err != nil {
				return fmt.Errorf("failed to read CV: %w", err)
			}
			in.CVText = string(cv)

			a, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			cand, err := a.candidates.Add(cmd.Context(), in)
			if err != nil {
				return userError(err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added candidate %s (%s)\n", cand.Name, cand.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Name, "name", "n", "", "Candidate name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Candidate email")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Candidate phone")
	cmd.Flags().StringVar(&in.LinkedInURL, "linkedin", "", "LinkedIn profile URL")
	cmd.Flags().StringVar(&cvFile, "cv", "", "Path to the CV text file")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("cv")
	return cmd
}

func (c *cli) candidatesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import candidates from a JSON array",
		Long: `Imports a JSON array of {"name","email","phone","linkedin_url","cv_text"} records.
Invalid records are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.candidates.ImportFile(cmd.Context(), args[0])
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Imported %d candidates\n", len(report.Imported))
			for _, f := range report.Failed {
				_, _ = fmt.Fprintf(out, "  skipped %s\n", f.Error())
			}
			if len(report.Imported) == 0 && len(report.Failed) > 0 {
				return fmt.Errorf("no candidates imported from %s", args[0])
			}
			return nil
		},
	}
}

func (c *cli) candidatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the candidate pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.candidates.List(cmd.Context())
			if err != nil {
				return userError(err)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintCandidateList(list)
			return nil
		},
	}
}

func (c *cli) candidatesSimilarCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "similar ID",
		Short: "Show the candidates closest to an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid candidate id: %w", err)
			}

			a, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			hits, err := a.candidates.Similar(cmd.Context(), id, limit)
			if err != nil {
				return userError(err)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintScoredCandidates("SIMILAR CANDIDATES", hits)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "k", matching.DefaultTopK, "Maximum number of candidates (1-100)")
	return cmd
}

func (c *cli) candidatesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid candidate id: %w", err)
			}

			a, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.candidates.Delete(cmd.Context(), id); err != nil {
				return userError(err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted candidate %s\n", id)
			return nil
		},
	}
}

// userError replaces an internal error chain with its user-facing message.
func userError(err error) error {
	if msg := apperrors.UserMessage(err, ""); msg != "" {
		return errors.New(msg)
	}
	return err
}
