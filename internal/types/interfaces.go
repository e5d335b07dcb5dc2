package types

import (
	"context"
	"time"
)

// VectorStore is the storage interface required of the dense vector
// store (component B).
type VectorStore interface {
	// Insert stores rec, assigning a fresh ID and CreatedAt (any caller-set
	// values for those two fields are overwritten) and returning the
	// assigned ID.
	Insert(ctx context.Context, rec EmbeddingRecord) (string, error)
	Search(ctx context.Context, query []float32, k int, minConfidence *float64) ([]ScoredRecord, error)
	SearchByPositions(ctx context.Context, query []float32, positions []CyclePosition, k int) ([]ScoredRecord, error)
	Stats(ctx context.Context) (VectorStoreStats, error)
	CleanupBefore(ctx context.Context, ageDays int) (int, error)
}

// ScoredRecord pairs a stored embedding record with its similarity to a
// query vector.
type ScoredRecord struct {
	Record     EmbeddingRecord
	Similarity float64
}

// VectorStoreStats is the aggregate view returned by Stats.
type VectorStoreStats struct {
	Total          int
	SacredCount    int
	MeanConfidence float64
	Dim            int
}

// Generator is the external text-generation collaborator (component G
// plugs one in; the core is agnostic to which).
type Generator interface {
	Generate(ctx context.Context, prompt, contextText string, maxTokens int) (string, error)
	// Name identifies the concrete backend and model (e.g. "genai:<model>",
	// "ollama:<model>"); IsLocal tells the orchestrator whether a local
	// generator was used.
	Name() string
	IsLocal() bool
}

// FetchPolicy bounds an external fetch: how deep to search, how many
// results per domain to keep, and a hard deadline.
type FetchPolicy struct {
	Depth     int
	DomainCap int
	Deadline  time.Time
}

// Fetcher is the external search collaborator used by the cache-first
// retrieval adapter (component F).
type Fetcher interface {
	Fetch(ctx context.Context, query string, policy FetchPolicy) ([]SearchResult, error)
}
