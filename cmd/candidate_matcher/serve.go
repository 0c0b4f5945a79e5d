package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/candidate-matcher/internal/server"
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  `Start an HTTP server that exposes the conversation, candidate and matching endpoints.`,
		Args:  cobra.NoArgs,
		RunE:  c.runServe,
	}
	cmd.Flags().Int("port", 8080, "Port to listen on")
	cmd.Flags().Bool("migrate", false, "Apply the database schema before serving")
	_ = c.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	return cmd
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate && !c.deps.inMemory {
		if err := c.migrate(ctx); err != nil {
			return err
		}
	}

	srv, err := server.New(server.Config{
		Port:      c.cfg.Server.Port,
		RateLimit: c.cfg.Server.RateLimit,
		Auth:      c.cfg.Auth,
	}, server.Deps{
		Sessions:   a.sessions,
		Candidates: a.candidates,
		Reviewer:   a.responder,
		Postings:   a.fetcher,
		Health:     a.health,
	}, c.log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}
