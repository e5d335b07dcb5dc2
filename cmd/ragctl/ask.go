package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragrt/internal/orchestrator"
)

var askMode string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "send a single request through the orchestrator",
	Long: `Resolves a generation mode (fast, balanced, thorough, reasoning),
runs it through the cyclic controller and RAG pipeline as applicable,
and prints the generated answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askMode, "mode", "balanced", "requested mode: fast, balanced, thorough, reasoning")
}

func parseMode(s string) (orchestrator.Mode, error) {
	switch strings.ToLower(s) {
	case "fast":
		return orchestrator.ModeFast, nil
	case "balanced":
		return orchestrator.ModeBalanced, nil
	case "thorough":
		return orchestrator.ModeThorough, nil
	case "reasoning":
		return orchestrator.ModeReasoning, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want fast, balanced, thorough, or reasoning)", s)
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	mode, err := parseMode(askMode)
	if err != nil {
		return err
	}

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	input := strings.Join(args, " ")
	sessionID := uuid.NewString()

	resp, err := rt.orch.Handle(ctx, sessionID, input, mode)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	logger.Info("ask completed",
		zap.String("session_id", sessionID),
		zap.String("mode", resp.Mode.String()),
		zap.Int("position", int(resp.Position)),
		zap.Bool("checkpoint", resp.Checkpoint),
		zap.Float64("confidence", resp.Confidence),
		zap.Bool("second_pass", resp.SecondPassUsed),
		zap.Bool("local_generator", resp.LocalGeneratorUsed),
		zap.Int64("processing_time_ms", resp.ProcessingTimeMS),
	)

	fmt.Println(resp.Text)
	return nil
}
