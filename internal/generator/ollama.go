package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragrt/internal/logging"
	"ragrt/internal/types"
)

// OllamaGenerator generates text via a local Ollama server.
type OllamaGenerator struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaGenerator creates a local-backed generator.
func NewOllamaGenerator(endpoint, model string) *OllamaGenerator {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1"
	}
	return &OllamaGenerator{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type ollamaGenerateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	System  string `json:"system,omitempty"`
	Stream  bool   `json:"stream"`
	Options struct {
		NumPredict int `json:"num_predict,omitempty"`
	} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends prompt, with contextText as the system message, to the
// local Ollama server and returns its non-streamed response.
func (o *OllamaGenerator) Generate(ctx context.Context, prompt, contextText string, maxTokens int) (string, error) {
	timer := logging.StartTimer(logging.CategoryGenerator, "Ollama.Generate")
	defer timer.Stop()

	start := time.Now()
	req := ollamaGenerateRequest{Model: o.model, Prompt: prompt, System: contextText, Stream: false}
	if maxTokens > 0 {
		req.Options.NumPredict = maxTokens
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		logging.GeneratorError("Ollama.Generate failed after %v: %v", time.Since(start), err)
		return "", types.NewError(types.KindUpstream, "generator.Ollama.Generate", "ollama request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", types.NewError(types.KindUpstream, "generator.Ollama.Generate", fmt.Sprintf("ollama returned status %d: %s", resp.StatusCode, string(bodyBytes)), nil)
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	logging.GeneratorDebug("Ollama.Generate completed in %v, response_len=%d", time.Since(start), len(result.Response))
	return result.Response, nil
}

// Name identifies this backend.
func (o *OllamaGenerator) Name() string { return fmt.Sprintf("ollama:%s", o.model) }

// IsLocal reports that Ollama runs locally.
func (o *OllamaGenerator) IsLocal() bool { return true }

var _ types.Generator = (*OllamaGenerator)(nil)
