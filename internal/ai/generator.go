package ai

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Generator produces assistant text from a system instruction and a prompt.
type Generator interface {
	Generate(ctx context.Context, system string, prompt string) (string, error)
}

// GroqGenerator calls an OpenAI-compatible chat-completions endpoint.
type GroqGenerator struct {
	client openai.Client
	model  string
}

// NewGroqGenerator builds a generator against the given base URL and model.
func NewGroqGenerator(apiKey, baseURL, model string) *GroqGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &GroqGenerator{client: openai.NewClient(opts...), model: model}
}

// Generate runs one chat completion with a system and a user message.
func (g *GroqGenerator) Generate(ctx context.Context, system string, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
