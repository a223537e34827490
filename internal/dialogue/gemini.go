package dialogue

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

var geminiModels = map[string]string{
	"gemini-flash": "gemini-2.5-flash",
	"gemini-pro":   "gemini-2.5-pro",
}

const defaultTemperature = 0.7

// GeminiGenerator calls the Gemini API through the genai SDK.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func NewGeminiGenerator(ctx context.Context, opts Options) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiGenerator{
		client:      client,
		model:       resolveModel(geminiModels, opts.Model, "gemini-flash"),
		temperature: float32(temperatureOr(opts.Temperature)),
		maxTokens:   int32(opts.MaxTokens),
	}, nil
}

func (g *GeminiGenerator) Name() string { return "gemini" }

func (g *GeminiGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("Gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return text, nil
}

// resolveModel maps a short alias to a model ID. Unknown names are passed
// through so callers can pin an exact model.
func resolveModel(aliases map[string]string, name, fallback string) string {
	if name == "" {
		return aliases[fallback]
	}
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}

func temperatureOr(t float64) float64 {
	if t <= 0 {
		return defaultTemperature
	}
	return t
}
