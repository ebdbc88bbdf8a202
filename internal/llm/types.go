package llm

import (
	"context"
)

// Request describes a single completion request.
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

// Response carries a completed generation.
type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Generator defines a pluggable LLM backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
