package llm

import (
	"context"
	"time"
)

type mockGenerator struct{}

func NewMockGenerator() Generator { return &mockGenerator{} }

func (m *mockGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-time.After(10 * time.Millisecond):
	}
	return Response{Content: "Mock analysis of the provided transcript."}, nil
}
