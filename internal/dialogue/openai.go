package dialogue

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

var openAIModels = map[string]string{
	"gpt-mini": openai.GPT4oMini,
	"gpt":      openai.GPT4o,
}

type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAIGenerator(opts Options) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:      openai.NewClient(opts.APIKey),
		model:       resolveModel(openAIModels, opts.Model, "gpt-mini"),
		temperature: float32(temperatureOr(opts.Temperature)),
		maxTokens:   opts.MaxTokens,
	}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if g.maxTokens > 0 {
		req.MaxTokens = g.maxTokens
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
