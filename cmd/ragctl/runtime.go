package main

import (
	"context"
	"fmt"
	"path/filepath"

	"ragrt/internal/auditstream"
	"ragrt/internal/config"
	"ragrt/internal/controller"
	"ragrt/internal/embedding"
	"ragrt/internal/generator"
	"ragrt/internal/orchestrator"
	"ragrt/internal/rag"
	"ragrt/internal/retrieval"
	"ragrt/internal/scorer"
	"ragrt/internal/types"
	"ragrt/internal/vectorstore"
)

// runtime bundles the collaborators every subcommand needs, all built
// from one loaded config.yaml plus environment overrides.
type runtime struct {
	cfg   *config.Config
	store *vectorstore.SQLStore
	sc    *scorer.Scorer
	ctrl  *controller.Controller
	audit *auditstream.Manager
	pipe  *rag.Pipeline
	emb   embedding.EmbeddingEngine
	orch  *orchestrator.Orchestrator
}

func buildRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ws := workspace
	if ws == "" {
		ws = "."
	}
	store, err := vectorstore.OpenSQLStore(filepath.Join(ws, ".ragrt", "store.db"), 0)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	emb, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("build embedding engine: %w", err)
	}

	sc := scorer.New(cfg.Scorer)
	audit := auditstream.NewManager(cfg.Audit)
	ctrl := controller.New(cfg.Controller, sc, audit)
	pipe := rag.New(cfg.RAG, store)

	gen, err := buildGenerator(cfg.Generator)
	if err != nil {
		return nil, fmt.Errorf("build generator: %w", err)
	}

	orch := orchestrator.New(gen, ctrl, pipe, emb, sc, audit)

	return &runtime{cfg: cfg, store: store, sc: sc, ctrl: ctrl, audit: audit, pipe: pipe, emb: emb, orch: orch}, nil
}

func buildGenerator(cfg config.GeneratorConfig) (types.Generator, error) {
	switch cfg.Provider {
	case "genai":
		return generator.NewGenAIGenerator(cfg.GenAIAPIKey, cfg.GenAIModel)
	case "ollama", "":
		return generator.NewOllamaGenerator(cfg.OllamaEndpoint, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}

// buildCache wires the retrieval.Cache used by "ingest", sharing the
// same embedding engine and vector store as the rest of the runtime.
func buildCache(rt *runtime, fetcher types.Fetcher) *retrieval.Cache {
	return retrieval.New(fetcher, &embeddingExtractor{emb: rt.emb}, rt.store, rt.cfg.Cache.MaxEntries, rt.cfg.CacheTimeout())
}

// embeddingExtractor turns deduped search results into embedding
// records by embedding each result's snippet, satisfying
// retrieval.Extractor.
type embeddingExtractor struct {
	emb embedding.EmbeddingEngine
}

func (e *embeddingExtractor) Extract(ctx context.Context, query string, results []retrieval.ScoredResult) ([]types.EmbeddingRecord, error) {
	records := make([]types.EmbeddingRecord, 0, len(results))
	for i, r := range results {
		vec, err := e.emb.Embed(ctx, r.Result.Snippet)
		if err != nil {
			return nil, fmt.Errorf("embed %q: %w", r.Result.URL, err)
		}
		records = append(records, types.EmbeddingRecord{
			DocID:      r.Result.URL,
			ChunkID:    fmt.Sprintf("%s#%d", r.Result.URL, i),
			Vector:     vec,
			Text:       r.Result.Snippet,
			Confidence: r.Credibility,
			Metadata: map[string]string{
				"title":         r.Result.Title,
				"source_engine": r.Result.SourceEngine,
				"query":         query,
			},
		})
	}
	return records, nil
}
