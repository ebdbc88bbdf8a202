package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/minutelabs/minuted/internal/config"
)

// execGenerator shells out to an external command. The request is
// written to stdin as JSON and the command must print a JSON object
// with a "content" field on stdout.
type execGenerator struct {
	cmd     []string
	timeout time.Duration
}

type execRequest struct {
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type execResponse struct {
	Content string `json:"content"`
	Error   string `json:"error"`
}

func NewExecGenerator(cfg config.LLMConfig) (Generator, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse llm command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("llm command is empty")
	}
	return &execGenerator{cmd: args, timeout: time.Duration(cfg.TimeoutS) * time.Second}, nil
}

func (g *execGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(execRequest{
		Prompt:      req.Prompt,
		System:      req.System,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	command := exec.CommandContext(ctx, g.cmd[0], g.cmd[1:]...)
	command.Stdin = bytes.NewReader(payload)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return Response{}, fmt.Errorf("llm command failed: %w: %s", err, stderr.String())
	}

	var resp execResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("decode llm response: %w", err)
	}
	if resp.Error != "" {
		return Response{}, fmt.Errorf("llm command error: %s", resp.Error)
	}
	return Response{Content: resp.Content}, nil
}
