package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/candidate-matcher/internal/server"
)

func (c *cli) tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Mint a bearer token for the REST API",
		Long:  `Prints a signed JWT for SUBJECT. Requires auth.jwt-secret (or JWT_SECRET).`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.cfg.Auth.Enabled() {
				return errors.New("auth.jwt-secret is not set; API authentication is disabled")
			}
			token, err := server.NewJWTService(c.cfg.Auth).GenerateToken(args[0])
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
