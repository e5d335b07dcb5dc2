// Package config loads the runtime's tunables from a single YAML file,
// aggregating each component package's own Config type: the scorer's
// constraint thresholds (spec.md §4.C), the controller's confidence
// model (§4.D), the RAG pipeline's retrieval/rerank parameters (§4.E),
// the cache-first retrieval adapter's size/timeout (§4.F), the audit
// manager's retention limits (§6), and the embedding/generator backend
// selections. Mirrors the teacher's internal/config/config.go: a
// DefaultConfig with reference values, Load/Save against YAML, and
// environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"ragrt/internal/auditstream"
	"ragrt/internal/controller"
	"ragrt/internal/embedding"
	"ragrt/internal/logging"
	"ragrt/internal/rag"
	"ragrt/internal/scorer"
)

// CacheConfig bounds the cache-first retrieval adapter (internal/retrieval).
// Kept here rather than as a retrieval.Config type since retrieval.New
// takes cacheMax/timeout directly and has no config struct of its own.
type CacheConfig struct {
	MaxEntries int    `yaml:"max_entries"` // default 500, see retrieval.DefaultCacheMax
	Timeout    string `yaml:"timeout"`     // parsed via time.ParseDuration, default "10s"
}

// GeneratorConfig selects and configures the external text-generation
// backend, mirroring embedding.Config's provider/endpoint/model shape.
type GeneratorConfig struct {
	Provider       string `yaml:"provider"` // "ollama" or "genai"
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
	GenAIModel     string `yaml:"genai_model"`
}

// LoggingConfig mirrors internal/logging's own private configFile
// shape. The logging package reads its own .ragrt/config.json
// independently to avoid a circular import on this package; this type
// exists so the aggregate YAML config documents the same knobs in one
// place and Save can emit a matching fragment.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode"`
	Categories map[string]bool `yaml:"categories" json:"categories"`
	Level      string          `yaml:"level" json:"level"`
	JSONFormat bool            `yaml:"json_format" json:"json_format"`
}

// Config holds every tunable of the cyclic controller / RAG runtime.
type Config struct {
	Scorer     scorer.Config      `yaml:"scorer"`
	Controller controller.Config  `yaml:"controller"`
	RAG        rag.Config         `yaml:"rag"`
	Cache      CacheConfig        `yaml:"cache"`
	Audit      auditstream.Config `yaml:"audit"`
	Embedding  embedding.Config   `yaml:"embedding"`
	Generator  GeneratorConfig    `yaml:"generator"`
	Logging    LoggingConfig      `yaml:"logging"`
}

// DefaultConfig returns the reference-implementation defaults, one
// DefaultConfig() call per component.
func DefaultConfig() *Config {
	return &Config{
		Scorer:     scorer.DefaultConfig(),
		Controller: controller.DefaultConfig(),
		RAG:        rag.DefaultConfig(),
		Cache: CacheConfig{
			MaxEntries: 500,
			Timeout:    "10s",
		},
		Audit:     auditstream.DefaultConfig(),
		Embedding: embedding.DefaultConfig(),
		Generator: GeneratorConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "llama3.1",
			GenAIModel:     "gemini-2.5-flash",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults
// (with environment overrides still applied) when the file does not
// exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("loading runtime config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("config loaded from %s: generator.provider=%s embedding.provider=%s", path, cfg.Generator.Provider, cfg.Embedding.Provider)
	return cfg, nil
}

// Save writes the configuration to path as YAML, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets secrets and deployment-specific endpoints be
// supplied without committing them to the YAML file, checked after the
// file is loaded so the environment always wins.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GENAI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
		c.Generator.GenAIAPIKey = key
		if c.Embedding.Provider == "" {
			c.Embedding.Provider = "genai"
		}
	}
	if endpoint := os.Getenv("OLLAMA_ENDPOINT"); endpoint != "" {
		c.Embedding.OllamaEndpoint = endpoint
		c.Generator.OllamaEndpoint = endpoint
	}
	if dir := os.Getenv("RAGRT_AUDIT_DIR"); dir != "" {
		c.Audit.PersistenceDir = dir
		c.Audit.EnablePersistence = true
	}
}

// Validate enforces the numeric bounds spec.md names on the loaded
// configuration, returning the first violation found.
func (c *Config) Validate() error {
	if c.Scorer.PMax < 0 || c.Scorer.PMax > 1 {
		return fmt.Errorf("scorer.p_max must be in [0,1], got %v", c.Scorer.PMax)
	}
	if c.Scorer.EMin < 0 || c.Scorer.EMin > 1 {
		return fmt.Errorf("scorer.e_min must be in [0,1], got %v", c.Scorer.EMin)
	}
	if c.Scorer.LMin < 0 || c.Scorer.LMin > 1 {
		return fmt.Errorf("scorer.l_min must be in [0,1], got %v", c.Scorer.LMin)
	}
	if c.Scorer.SigmaMin < 0 || c.Scorer.SigmaMin > 1 {
		return fmt.Errorf("scorer.sigma_min must be in [0,1], got %v", c.Scorer.SigmaMin)
	}
	if c.Scorer.SubspaceRank <= 0 {
		return fmt.Errorf("scorer.subspace_rank must be positive, got %d", c.Scorer.SubspaceRank)
	}
	if c.Scorer.SacredFactor < 1 {
		return fmt.Errorf("scorer.sacred_factor must be >= 1, got %v", c.Scorer.SacredFactor)
	}
	if c.RAG.TopN > c.RAG.TopK {
		return fmt.Errorf("rag.top_n (%d) must not exceed rag.top_k (%d)", c.RAG.TopN, c.RAG.TopK)
	}
	if c.RAG.Lambda < 0 || c.RAG.Lambda > 1 {
		return fmt.Errorf("rag.lambda must be in [0,1], got %v", c.RAG.Lambda)
	}
	if c.RAG.SimMin < 0 || c.RAG.SimMin > 1 {
		return fmt.Errorf("rag.sim_min must be in [0,1], got %v", c.RAG.SimMin)
	}
	if c.RAG.ContextWindow <= 0 {
		return fmt.Errorf("rag.context_window must be positive, got %d", c.RAG.ContextWindow)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Audit.MaxStreams <= 0 {
		return fmt.Errorf("audit.max_streams must be positive, got %d", c.Audit.MaxStreams)
	}
	if c.Generator.Provider != "ollama" && c.Generator.Provider != "genai" {
		return fmt.Errorf("generator.provider must be \"ollama\" or \"genai\", got %q", c.Generator.Provider)
	}
	return nil
}

// CacheTimeout returns Cache.Timeout as a duration, defaulting to 10s
// if unset or unparsable.
func (c *Config) CacheTimeout() time.Duration {
	d, err := time.ParseDuration(c.Cache.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
