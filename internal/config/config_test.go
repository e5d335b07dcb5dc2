package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigMatchesComponentDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0.7, cfg.Scorer.PMax)
	assert.Equal(t, 20, cfg.RAG.TopK)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, "ollama", cfg.Generator.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().RAG.TopK, cfg.RAG.TopK)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.RAG.TopK = 40
	cfg.RAG.TopN = 10
	cfg.Generator.Provider = "genai"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40, loaded.RAG.TopK)
	assert.Equal(t, 10, loaded.RAG.TopN)
	assert.Equal(t, "genai", loaded.Generator.Provider)
}

func TestEnvOverridesWinOverFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	t.Setenv("GENAI_API_KEY", "env-key")
	t.Setenv("OLLAMA_ENDPOINT", "http://remote:11434")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Embedding.GenAIAPIKey)
	assert.Equal(t, "env-key", cfg.Generator.GenAIAPIKey)
	assert.Equal(t, "http://remote:11434", cfg.Embedding.OllamaEndpoint)
	assert.Equal(t, "http://remote:11434", cfg.Generator.OllamaEndpoint)
}

func TestValidateRejectsOutOfRangeTunables(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RAG.TopN = cfg.RAG.TopK + 1
	assert.Error(t, cfg.Validate())

	cfg2 := DefaultConfig()
	cfg2.Generator.Provider = "claude"
	assert.Error(t, cfg2.Validate())

	cfg3 := DefaultConfig()
	cfg3.Scorer.PMax = 1.5
	assert.Error(t, cfg3.Validate())
}

func TestCacheTimeoutDefaultsOnUnparsable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Timeout = "not-a-duration"
	assert.Equal(t, 10.0, cfg.CacheTimeout().Seconds())
}
