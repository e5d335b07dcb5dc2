// Package generator implements the two concrete text-generation
// backends named in spec.md §4.G's "whether a local generator was
// used" distinction: a cloud GenAI implementation and a local Ollama
// implementation, both satisfying types.Generator.
package generator

import (
	"context"
	"fmt"
	"time"

	"ragrt/internal/logging"
	"ragrt/internal/types"

	"google.golang.org/genai"
)

// GenAIGenerator generates text via Google's Gemini API.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// NewGenAIGenerator creates a cloud-backed generator.
func NewGenAIGenerator(apiKey, model string) (*GenAIGenerator, error) {
	timer := logging.StartTimer(logging.CategoryGenerator, "NewGenAIGenerator")
	defer timer.Stop()

	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		logging.GeneratorError("failed to create GenAI client: %v", err)
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logging.Generator("GenAI generator ready: model=%s", model)
	return &GenAIGenerator{client: client, model: model}, nil
}

// Generate sends prompt with contextText prepended as a system
// instruction and returns the model's text response.
func (g *GenAIGenerator) Generate(ctx context.Context, prompt, contextText string, maxTokens int) (string, error) {
	timer := logging.StartTimer(logging.CategoryGenerator, "GenAI.Generate")
	defer timer.Stop()

	start := time.Now()
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{}
	if contextText != "" {
		cfg.SystemInstruction = genai.NewContentFromText(contextText, genai.RoleUser)
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		logging.GeneratorError("GenAI.Generate failed after %v: %v", time.Since(start), err)
		return "", types.NewError(types.KindUpstream, "generator.GenAI.Generate", "genai request failed", err)
	}

	text := result.Text()
	logging.GeneratorDebug("GenAI.Generate completed in %v, response_len=%d", time.Since(start), len(text))
	return text, nil
}

// Name identifies this backend.
func (g *GenAIGenerator) Name() string { return fmt.Sprintf("genai:%s", g.model) }

// IsLocal reports that GenAI is a cloud-routed backend.
func (g *GenAIGenerator) IsLocal() bool { return false }

var _ types.Generator = (*GenAIGenerator)(nil)
