// Package pipeline drives a full processing run: load the recording,
// segment it into speech windows, transcribe the windows concurrently,
// merge the transcripts in order, analyze the result, and write the
// output documents.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/minutelabs/minuted/internal/audio"
	"github.com/minutelabs/minuted/internal/config"
	"github.com/minutelabs/minuted/internal/events"
	"github.com/minutelabs/minuted/internal/llm"
	"github.com/minutelabs/minuted/internal/merge"
	"github.com/minutelabs/minuted/internal/report"
	"github.com/minutelabs/minuted/internal/runstore"
	"github.com/minutelabs/minuted/internal/stt"
)

// ErrNoSpeech is returned when segmentation finds nothing to
// transcribe in the recording.
var ErrNoSpeech = errors.New("no speech detected in recording")

// Summary describes a completed run.
type Summary struct {
	RunID             string
	AudioDuration     float64
	WindowCount       int
	ChunksTranscribed int
	WordCount         int
	TranscriptLength  int
	Documents         report.Documents
	Elapsed           time.Duration
}

// Pipeline wires the processing stages together. Every collaborator
// is constructed up front and passed in; nothing is created lazily.
type Pipeline struct {
	cfg         config.Config
	logger      *slog.Logger
	transcriber stt.Transcriber
	analyzer    *llm.Analyzer
	reports     *report.Generator
	store       *runstore.Store
	publisher   *events.Publisher

	tracer          trace.Tracer
	chunksProcessed metric.Int64Counter
	chunkDuration   metric.Float64Histogram
	runDuration     metric.Float64Histogram
}

func New(cfg config.Config, logger *slog.Logger, transcriber stt.Transcriber, analyzer *llm.Analyzer, reports *report.Generator, store *runstore.Store, publisher *events.Publisher) (*Pipeline, error) {
	meter := otel.Meter("minuted/pipeline")

	chunksProcessed, err := meter.Int64Counter("minuted.chunks.processed",
		metric.WithDescription("Number of audio chunks transcribed"))
	if err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	chunkDuration, err := meter.Float64Histogram("minuted.chunk.duration",
		metric.WithDescription("Per-chunk transcription latency in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create histogram: %w", err)
	}
	runDuration, err := meter.Float64Histogram("minuted.run.duration",
		metric.WithDescription("End-to-end run latency in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create histogram: %w", err)
	}

	return &Pipeline{
		cfg:             cfg,
		logger:          logger.With("component", "pipeline"),
		transcriber:     transcriber,
		analyzer:        analyzer,
		reports:         reports,
		store:           store,
		publisher:       publisher,
		tracer:          otel.Tracer("minuted/pipeline"),
		chunksProcessed: chunksProcessed,
		chunkDuration:   chunkDuration,
		runDuration:     runDuration,
	}, nil
}

type chunkResult struct {
	text string
	err  error
}

// Process runs the pipeline over one recording and returns the run
// summary. Individual chunk transcription failures are skipped with a
// warning; the run fails only when nothing at all can be produced.
func (p *Pipeline) Process(ctx context.Context, audioPath string) (Summary, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := p.logger.With("run_id", runID)

	ctx, span := p.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("run.id", runID), attribute.String("audio.path", audioPath)))
	defer span.End()

	signal, err := audio.LoadWAV(audioPath)
	if err != nil {
		return Summary{}, fmt.Errorf("load audio: %w", err)
	}
	if signal.SampleRate != p.cfg.Audio.SampleRate {
		log.Warn("sample rate differs from configured rate",
			"file_rate", signal.SampleRate, "configured_rate", p.cfg.Audio.SampleRate)
	}
	log.Info("audio loaded", "duration_s", signal.Duration(), "sample_rate", signal.SampleRate)

	segmenter := audio.NewSegmenter(p.cfg.Audio, p.logger)
	windows := segmenter.Segment(signal.Samples)
	if len(windows) == 0 {
		return Summary{}, ErrNoSpeech
	}

	if err := p.store.BeginRun(ctx, runID, audioPath); err != nil {
		return Summary{}, fmt.Errorf("begin run: %w", err)
	}
	p.publisher.RunStarted(events.RunStarted{
		RunID:         runID,
		AudioPath:     audioPath,
		AudioDuration: signal.Duration(),
		WindowCount:   len(windows),
	})

	results := p.transcribeAll(ctx, log, runID, signal.SampleRate, windows)

	merger := merge.NewMerger()
	transcribed := 0
	for i, res := range results {
		if res.err != nil {
			log.Warn("skipping failed chunk", "chunk", i, "error", res.err)
			continue
		}
		transcribed++
		merger.Merge(res.text, merge.ChunkInfo{
			Index:     i,
			StartTime: windows[i].StartTime,
			EndTime:   windows[i].EndTime,
		})
	}
	if transcribed == 0 {
		return Summary{}, fmt.Errorf("all %d chunks failed transcription", len(windows))
	}

	stats := merger.Stats()
	for _, rec := range stats.Records {
		p.publisher.ChunkMerged(events.ChunkMerged{
			RunID:             runID,
			ChunkIndex:        rec.Chunk.Index,
			UniqueLength:      len(rec.UniqueText),
			AccumulatedLength: rec.AccumulatedLength,
		})
		err := p.store.AppendChunk(ctx, runstore.Chunk{
			RunID:             runID,
			ChunkIndex:        rec.Chunk.Index,
			StartTime:         rec.Chunk.StartTime,
			EndTime:           rec.Chunk.EndTime,
			OriginalText:      rec.OriginalText,
			UniqueText:        rec.UniqueText,
			AccumulatedLength: rec.AccumulatedLength,
		})
		if err != nil {
			log.Warn("persist chunk record failed", "chunk", rec.Chunk.Index, "error", err)
		}
	}

	transcript := merger.FinalTranscript()
	log.Info("transcript merged", "chunks", stats.ChunkCount, "words", stats.FinalWordCount, "chars", stats.FinalLength)

	analysis, err := p.analyzer.Analyze(ctx, transcript)
	if err != nil {
		if errors.Is(err, llm.ErrTranscriptTooShort) {
			log.Warn("transcript too short for analysis", "chars", stats.FinalLength)
		} else {
			return Summary{}, fmt.Errorf("analyze transcript: %w", err)
		}
	}

	docs, err := p.reports.Generate(ctx, runID, transcript, analysis)
	if err != nil {
		return Summary{}, fmt.Errorf("write documents: %w", err)
	}

	elapsed := time.Since(started)
	if err := p.store.CompleteRun(ctx, runstore.Run{
		RunID:            runID,
		AudioPath:        audioPath,
		ChunkCount:       stats.ChunkCount,
		WordCount:        stats.FinalWordCount,
		TranscriptLength: stats.FinalLength,
	}); err != nil {
		log.Warn("persist run failed", "error", err)
	}
	p.publisher.RunCompleted(events.RunCompleted{
		RunID:            runID,
		ChunkCount:       stats.ChunkCount,
		WordCount:        stats.FinalWordCount,
		TranscriptLength: stats.FinalLength,
		ElapsedSeconds:   elapsed.Seconds(),
	})
	p.runDuration.Record(ctx, elapsed.Seconds())

	return Summary{
		RunID:             runID,
		AudioDuration:     signal.Duration(),
		WindowCount:       len(windows),
		ChunksTranscribed: transcribed,
		WordCount:         stats.FinalWordCount,
		TranscriptLength:  stats.FinalLength,
		Documents:         docs,
		Elapsed:           elapsed,
	}, nil
}

// transcribeAll runs transcription over a bounded worker pool. Result
// order follows window order regardless of completion order.
func (p *Pipeline) transcribeAll(ctx context.Context, log *slog.Logger, runID string, sampleRate int, windows []audio.Window) []chunkResult {
	results := make([]chunkResult, len(windows))
	sem := make(chan struct{}, p.cfg.Pipeline.Concurrency)
	done := make(chan int, len(windows))

	for i := range windows {
		go func(i int) {
			sem <- struct{}{}
			defer func() { <-sem }()

			chunkStart := time.Now()
			res, err := p.transcriber.Transcribe(ctx, windows[i].Samples, sampleRate)
			if err != nil {
				results[i] = chunkResult{err: err}
			} else {
				results[i] = chunkResult{text: res.Text}
			}
			p.chunkDuration.Record(ctx, time.Since(chunkStart).Seconds())
			p.chunksProcessed.Add(ctx, 1,
				metric.WithAttributes(attribute.Bool("failed", err != nil)))
			p.publisher.ChunkTranscribed(events.ChunkTranscribed{
				RunID:      runID,
				ChunkIndex: i,
				StartTime:  windows[i].StartTime,
				EndTime:    windows[i].EndTime,
				TextLength: len(results[i].text),
				Failed:     err != nil,
			})
			log.Debug("chunk transcribed",
				"chunk", i,
				"start_s", windows[i].StartTime,
				"chars", len(strings.TrimSpace(results[i].text)),
				"elapsed", time.Since(chunkStart))
			done <- i
		}(i)
	}
	for range windows {
		<-done
	}
	return results
}
