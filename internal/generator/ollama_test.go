package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerateReturnsResponseText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Prompt)
		assert.Equal(t, "some context", req.System)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "generated answer", Done: true})
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "llama3.1")
	text, err := g.Generate(context.Background(), "hello", "some context", 0)
	require.NoError(t, err)
	assert.Equal(t, "generated answer", text)
	assert.True(t, g.IsLocal())
	assert.Equal(t, "ollama:llama3.1", g.Name())
}

func TestOllamaGenerateNonOKStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "llama3.1")
	_, err := g.Generate(context.Background(), "hello", "", 0)
	assert.Error(t, err)
}

func TestNewOllamaGeneratorAppliesDefaults(t *testing.T) {
	g := NewOllamaGenerator("", "")
	assert.Equal(t, "http://localhost:11434", g.endpoint)
	assert.Equal(t, "llama3.1", g.model)
}
