package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/minutelabs/minuted/internal/config"
)

type ollamaGenerator struct {
	endpoint string
	model    string
	client   *http.Client
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Response      string `json:"response"`
	Done          bool   `json:"done"`
	PromptEvalLen int    `json:"prompt_eval_count"`
	EvalLen       int    `json:"eval_count"`
	Error         string `json:"error"`
}

func NewOllamaGenerator(cfg config.LLMConfig) (Generator, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("ollama backend requires endpoint")
	}
	timeout := time.Duration(cfg.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &ollamaGenerator{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (g *ollamaGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  g.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return Response{}, fmt.Errorf("ollama error: %s", out.Error)
	}
	return Response{
		Content:          out.Response,
		PromptTokens:     out.PromptEvalLen,
		CompletionTokens: out.EvalLen,
	}, nil
}
