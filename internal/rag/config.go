// Package rag implements the three-stage retrieval-augmented context
// pipeline described in spec.md §4.E: approximate vector retrieval,
// exact MMR rerank for diversity, neighbor expansion, and
// token-budgeted assembly, plus the four integration strategies.
package rag

// Config holds the tunables spec.md §4.E names, with reference
// defaults applied by DefaultConfig.
type Config struct {
	TopK              int     `yaml:"top_k"`          // stage-1 candidate pool, default 20
	TopN              int     `yaml:"top_n"`          // stage-2 MMR selection size, default 5
	Lambda            float64 `yaml:"lambda"`         // MMR diversity factor, default 0.3
	SimMin            float64 `yaml:"sim_min"`        // stage-1 similarity floor, default 0.5
	MinConfidence     float64 `yaml:"min_confidence"` // sacred-filtered confidence floor, default 0.6
	ContextWindow     int     `yaml:"context_window"` // token budget, default 2048
	SacredWeight      float64 `yaml:"sacred_weight"`  // relevance weight for checkpoint records, default 1.0 (>=1)
}

// DefaultConfig returns the reference-implementation defaults.
func DefaultConfig() Config {
	return Config{
		TopK:          20,
		TopN:          5,
		Lambda:        0.3,
		SimMin:        0.5,
		MinConfidence: 0.6,
		ContextWindow: 2048,
		SacredWeight:  1.0,
	}
}
