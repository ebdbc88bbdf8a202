package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minutelabs/minuted/internal/config"
)

// ErrTranscriptTooShort is returned when a transcript has too little
// content for meaningful analysis.
var ErrTranscriptTooShort = errors.New("transcript too short for analysis")

const minTranscriptChars = 50

const minutesPrompt = `Please analyze the following meeting transcript and create professional meeting minutes.
Format the output with clear sections and professional language.

Transcript:
%s

Please provide:
1. Executive Summary (2-3 sentences)
2. Key Discussion Points (main topics covered)
3. Decisions Made (specific decisions and outcomes)
4. Important Information (key facts, figures, or announcements)

Format professionally as if for a business document.`

const actionItemsPrompt = `Analyze the following meeting transcript and extract all action items, tasks, and follow-ups.

Transcript:
%s

Please identify:
1. Specific tasks or action items mentioned
2. Who is responsible (if mentioned)
3. Deadlines or timeframes (if mentioned)
4. Follow-up meetings or check-ins

Format as a clear list with:
- Task description
- Responsible person (if identified)
- Deadline/timeframe (if mentioned)
- Priority level (if apparent)

If no clear action items are found, state "No specific action items identified in this meeting."`

// Section is one generated analysis document. A failed generation
// carries its error alongside whatever partial content exists.
type Section struct {
	Content string
	Err     error
}

// Analysis holds both analysis documents plus transcript statistics.
type Analysis struct {
	Minutes          Section
	ActionItems      Section
	TranscriptLength int
	WordCount        int
}

// Analyzer turns a merged transcript into meeting minutes and action
// items using a Generator backend.
type Analyzer struct {
	gen    Generator
	cfg    config.LLMConfig
	logger *slog.Logger
}

func NewAnalyzer(gen Generator, cfg config.LLMConfig, logger *slog.Logger) *Analyzer {
	return &Analyzer{gen: gen, cfg: cfg, logger: logger.With("component", "analyzer")}
}

// Analyze generates both documents. Individual generation failures are
// reported per section; the call itself only errors when the transcript
// is unusable.
func (a *Analyzer) Analyze(ctx context.Context, transcript string) (Analysis, error) {
	trimmed := strings.TrimSpace(transcript)
	analysis := Analysis{
		TranscriptLength: len(transcript),
		WordCount:        len(strings.Fields(transcript)),
	}
	if len(trimmed) < minTranscriptChars {
		return analysis, ErrTranscriptTooShort
	}

	a.logger.Info("generating meeting minutes", "transcript_chars", len(transcript))
	analysis.Minutes = a.generateSection(ctx, fmt.Sprintf(minutesPrompt, transcript))

	a.logger.Info("extracting action items")
	analysis.ActionItems = a.generateSection(ctx, fmt.Sprintf(actionItemsPrompt, transcript))

	return analysis, nil
}

func (a *Analyzer) generateSection(ctx context.Context, prompt string) Section {
	resp, err := a.gen.Generate(ctx, Request{
		Prompt:      prompt,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		a.logger.Error("generation failed", "error", err)
		return Section{Err: err}
	}
	return Section{Content: resp.Content}
}
