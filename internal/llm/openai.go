package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/minutelabs/minuted/internal/config"
)

// openaiGenerator talks to any OpenAI-compatible chat completion API.
// Groq exposes the same wire format, so pointing Endpoint at
// https://api.groq.com/openai/v1 works unchanged.
type openaiGenerator struct {
	client *openai.Client
	cfg    config.LLMConfig
}

func NewOpenAIGenerator(cfg config.LLMConfig) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai backend requires api_key")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}
	return &openaiGenerator{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

func (g *openaiGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return Response{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("chat completion returned no choices")
	}
	return Response{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
