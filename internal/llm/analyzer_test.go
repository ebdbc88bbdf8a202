package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/minutelabs/minuted/internal/config"
)

type scriptedGenerator struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (s *scriptedGenerator) Generate(_ context.Context, req Request) (Response, error) {
	s.prompts = append(s.prompts, req.Prompt)
	if s.err != nil {
		return Response{}, s.err
	}
	resp := s.responses[s.calls%len(s.responses)]
	s.calls++
	return Response{Content: resp}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func longTranscript() string {
	return strings.Repeat("we discussed the quarterly roadmap and assigned owners ", 4)
}

func TestAnalyzeGeneratesBothSections(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"the minutes", "the action items"}}
	analyzer := NewAnalyzer(gen, config.LLMConfig{MaxTokens: 100}, testLogger())

	analysis, err := analyzer.Analyze(context.Background(), longTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Minutes.Content != "the minutes" || analysis.Minutes.Err != nil {
		t.Fatalf("unexpected minutes section: %+v", analysis.Minutes)
	}
	if analysis.ActionItems.Content != "the action items" || analysis.ActionItems.Err != nil {
		t.Fatalf("unexpected action items section: %+v", analysis.ActionItems)
	}
	if gen.calls != 2 {
		t.Fatalf("expected 2 generator calls, got %d", gen.calls)
	}
	if !strings.Contains(gen.prompts[0], "meeting minutes") {
		t.Fatal("first prompt should request meeting minutes")
	}
	if !strings.Contains(gen.prompts[1], "action items") {
		t.Fatal("second prompt should request action items")
	}
}

func TestAnalyzeRejectsShortTranscript(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"unused"}}
	analyzer := NewAnalyzer(gen, config.LLMConfig{}, testLogger())

	analysis, err := analyzer.Analyze(context.Background(), "too short")
	if !errors.Is(err, ErrTranscriptTooShort) {
		t.Fatalf("expected ErrTranscriptTooShort, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatal("generator should not be called for short transcripts")
	}
	if analysis.WordCount != 2 {
		t.Fatalf("expected word count 2, got %d", analysis.WordCount)
	}
}

func TestAnalyzeReportsSectionFailures(t *testing.T) {
	genErr := errors.New("backend down")
	analyzer := NewAnalyzer(&scriptedGenerator{err: genErr}, config.LLMConfig{}, testLogger())

	analysis, err := analyzer.Analyze(context.Background(), longTranscript())
	if err != nil {
		t.Fatalf("section failures should not fail the call: %v", err)
	}
	if !errors.Is(analysis.Minutes.Err, genErr) || !errors.Is(analysis.ActionItems.Err, genErr) {
		t.Fatalf("expected both sections to carry the backend error: %+v", analysis)
	}
}

func TestAnalyzeCountsTranscriptStats(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"ok"}}
	analyzer := NewAnalyzer(gen, config.LLMConfig{}, testLogger())

	transcript := longTranscript()
	analysis, err := analyzer.Analyze(context.Background(), transcript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.TranscriptLength != len(transcript) {
		t.Fatalf("expected length %d, got %d", len(transcript), analysis.TranscriptLength)
	}
	if analysis.WordCount != len(strings.Fields(transcript)) {
		t.Fatalf("unexpected word count %d", analysis.WordCount)
	}
}
