// Package main implements ragctl, the operator CLI for the cyclic
// cognitive controller / RAG runtime: ask a single question through
// the orchestrator, ingest external search results into the vector
// store, inspect the audit trail, and print aggregate stats.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ragrt/internal/logging"
)

var (
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "ragctl - operator CLI for the cyclic controller / RAG runtime",
	Long: `ragctl drives the signal-subspace scorer, cyclic controller, RAG
pipeline, and cache-first retrieval adapter from the command line.

Run "ragctl ask" to send a single request through the orchestrator, or
use the ingest/audit/stats subcommands to inspect runtime state.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		if configPath == "" {
			configPath = filepath.Join(ws, ".ragrt", "config.yaml")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default: <workspace>/.ragrt/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "operation timeout")

	rootCmd.AddCommand(askCmd, ingestCmd, auditCmd, statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
