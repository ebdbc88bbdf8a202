package stt

import (
	"context"
)

// Result captures transcriber output for one window.
type Result struct {
	Text     string
	Language string
}

// Transcriber abstracts speech-to-text backends. A failed transcription is
// reported through the error return, never as a degraded Result; callers
// must skip merging for failed windows while still advancing the chunk
// index.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float64, sampleRate int) (Result, error)
}
