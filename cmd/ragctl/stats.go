package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "print vector store and audit aggregate statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	vs, err := rt.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("vector store stats: %w", err)
	}
	fmt.Printf("vector store: total=%d sacred=%d mean_confidence=%.3f dim=%d\n", vs.Total, vs.SacredCount, vs.MeanConfidence, vs.Dim)

	gs := rt.audit.GlobalStats()
	fmt.Printf("audit: streams=%d events=%d avg_latency_ms=%.1f total_tokens=%d\n", gs.TotalStreams, gs.TotalEvents, gs.AvgLatencyPerEvent, gs.TotalTokensGenerated)

	return nil
}
