package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/config"
	"github.com/jonathan/candidate-matcher/internal/logger"
)

// cli carries the state shared by every command of one invocation.
type cli struct {
	v          *viper.Viper
	cfg        *config.Config
	log        *zap.Logger
	configPath string
	deps       appOptions
}

func newRootCmd() *cobra.Command {
	return newCLI().rootCmd()
}

func newCLI() *cli {
	return &cli{v: config.NewViper()}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "candidate_matcher",
		Short: "Match job descriptions against a candidate pool",
		Long: `Candidate Matcher extracts requirements from a job description, retrieves the closest candidates
from a vector index and writes an analysis, a profile summary and outreach drafts for each of them.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "Path to a YAML config file (default ./candidate-matcher.yaml)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.Bool("json", false, "Log as JSON")
	flags.BoolVar(&c.deps.inMemory, "in-memory", false, "Keep candidates and conversations in memory instead of PostgreSQL")
	_ = c.v.BindPFlag("log.debug", flags.Lookup("debug"))
	_ = c.v.BindPFlag("log.json", flags.Lookup("json"))

	root.AddCommand(
		c.serveCmd(),
		c.migrateCmd(),
		c.matchCmd(),
		c.candidatesCmd(),
		c.chatCmd(),
		c.tokenCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger before any command runs.
func (c *cli) setup(_ *cobra.Command, _ []string) error {
	if err := config.ReadFile(c.v, c.configPath); err != nil {
		return err
	}
	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if c.log == nil {
		log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		c.log = log
	}
	return nil
}

// app builds the services for commands that need them. Callers must Close it.
func (c *cli) app(ctx context.Context) (*app, error) {
	return buildApp(ctx, c.cfg, c.log, c.deps)
}
