// ABOUTME: OpenAI chat completion provider for schema generation.
// ABOUTME: Sends the schema system prompt and returns the raw reply text.

package generate

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type openAIClient struct {
	client *openai.Client
	model  string
}

func newOpenAI(apiKey, model string) *openAIClient {
	return &openAIClient{client: openai.NewClient(apiKey), model: model}
}

func (c *openAIClient) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
