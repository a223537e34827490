package dialogue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

var novaModels = map[string]string{
	"nova-lite": "us.amazon.nova-2-lite-v1:0",
}

// NovaGenerator calls Amazon Nova through the Bedrock Converse API.
type NovaGenerator struct {
	client      *bedrockruntime.Client
	model       string
	temperature float32
	maxTokens   int32
}

func NewNovaGenerator(cfg aws.Config, opts Options) *NovaGenerator {
	maxTokens := int32(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &NovaGenerator{
		client:      bedrockruntime.NewFromConfig(cfg),
		model:       resolveModel(novaModels, opts.Model, "nova-lite"),
		temperature: float32(temperatureOr(opts.Temperature)),
		maxTokens:   maxTokens,
	}
}

func (g *NovaGenerator) Name() string { return "nova" }

func (g *NovaGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(g.model),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: systemPrompt},
		},
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(g.maxTokens),
			Temperature: aws.Float32(g.temperature),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Bedrock Converse error: %w", err)
	}

	text := extractNovaText(resp)
	if text == "" {
		return "", fmt.Errorf("empty response from Bedrock")
	}
	return text, nil
}

func extractNovaText(resp *bedrockruntime.ConverseOutput) string {
	if resp.Output == nil {
		return ""
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			return tb.Value
		}
	}
	return ""
}
