// Package cli implements the relpat command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/duynguyendang/relpat/pkg/config"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// app is shared by all commands; PersistentPreRunE fills it in.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the relpat command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "relpat",
		Short: "relpat - relational pattern mining for knowledge graphs",
		Long: `relpat finds the logical patterns relations of a knowledge graph satisfy:
symmetry, anti-symmetry, inversion and composition, plus cardinality types,
functionality and per-part statistics.

Datasets live in one directory each under the data directory, either as
labeled TSV splits or as ingested BadgerDB stores.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("data-dir", "", "Dataset root directory (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "relpat v%s (%s)\n", version, commit)
		},
	})
	rootCmd.AddCommand(
		newClassifyCommand(a),
		newCardinalityCommand(a),
		newFunctionalityCommand(a),
		newCountsCommand(a),
		newIngestCommand(a),
		newServeCommand(a),
		newMCPCommand(a),
	)
	return rootCmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) init(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	level, _ := cfg.SlogLevel()

	// Logs go to stderr: stdout carries result tables and the MCP stdio protocol.
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	a.cfg = cfg
	a.logger.Debug("loaded configuration", "config", cfg.String())
	return nil
}
