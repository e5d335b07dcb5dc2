package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragrt/internal/types"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest [query]",
	Short: "run the cache-first retrieval adapter for a query and store the results",
	Long: `Looks query up in the retrieval cache, fetching and scoring on a
miss, then extracts and inserts the deduped results into the vector
store.

Fetching goes through --file, a JSON array of pre-fetched search
results (see types.SearchResult); a production deployment would swap
in a Fetcher backed by a real search API instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "path to a JSON array of types.SearchResult to ingest from (required)")
	ingestCmd.MarkFlagRequired("file")
}

// fileFetcher satisfies types.Fetcher by replaying a fixed JSON file of
// results regardless of query, for offline ingestion of search results
// gathered by an external tool.
type fileFetcher struct {
	results []types.SearchResult
}

func loadFileFetcher(path string) (*fileFetcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var results []types.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fileFetcher{results: results}, nil
}

func (f *fileFetcher) Fetch(ctx context.Context, query string, policy types.FetchPolicy) ([]types.SearchResult, error) {
	if policy.DomainCap > 0 && len(f.results) > policy.DomainCap*policy.Depth {
		return f.results[:policy.DomainCap*policy.Depth], nil
	}
	return f.results, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	query := args[0]

	fetcher, err := loadFileFetcher(ingestFile)
	if err != nil {
		return err
	}

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.store.Close()

	cache := buildCache(rt, fetcher)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	scored, err := cache.Lookup(ctx, query)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	hits, misses := cache.Stats()
	logger.Info("ingest completed",
		zap.String("query", query),
		zap.Int("results", len(scored)),
		zap.Int("cache_hits", hits),
		zap.Int("cache_misses", misses),
	)
	for _, r := range scored {
		fmt.Printf("%.3f  %s  %s\n", r.Credibility, r.Result.URL, r.Result.Title)
	}
	return nil
}
