package stt

import (
	"context"
	"fmt"
)

type mockTranscriber struct{}

// NewMockTranscriber returns a transcriber that emits placeholder text,
// used in development and tests where no model is available.
func NewMockTranscriber() Transcriber {
	return &mockTranscriber{}
}

func (m *mockTranscriber) Transcribe(_ context.Context, samples []float64, sampleRate int) (Result, error) {
	seconds := float64(len(samples)) / float64(sampleRate)
	return Result{
		Text:     fmt.Sprintf("mock transcript covering %.1f seconds", seconds),
		Language: "en",
	}, nil
}
