package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/minutelabs/minuted/internal/config"
	"github.com/minutelabs/minuted/internal/llm"
	"github.com/minutelabs/minuted/internal/report"
	"github.com/minutelabs/minuted/internal/runstore"
	"github.com/minutelabs/minuted/internal/stt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Audio.SampleRate = 8000
	cfg.Audio.ChunkDuration = 1
	cfg.Audio.OverlapDuration = 0.25
	cfg.Audio.MinSpeechSeconds = 0
	cfg.Report.OutputDir = t.TempDir()
	cfg.RunStore.RetentionMode = "ephemeral"
	cfg.Pipeline.Concurrency = 1
	return cfg
}

// scriptedTranscriber returns canned texts in call order. Concurrency
// is pinned to 1 in tests so call order equals window order.
type scriptedTranscriber struct {
	mu    sync.Mutex
	texts []string
	errAt int
	calls int
}

func (s *scriptedTranscriber) Transcribe(_ context.Context, _ []float64, _ int) (stt.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if s.errAt > 0 && i == s.errAt {
		return stt.Result{}, errors.New("transcription backend crashed")
	}
	return stt.Result{Text: s.texts[i%len(s.texts)], Language: "en"}, nil
}

// writeNoiseWAV writes white noise so every window passes the speech
// gate; silent=true writes all zero samples instead.
func writeNoiseWAV(t *testing.T, sampleRate int, seconds float64, silent bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(7))
	n := int(float64(sampleRate) * seconds)
	data := make([]int, n)
	if !silent {
		for i := range data {
			data[i] = int((rng.Float64()*2 - 1) * 16000)
		}
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func newTestPipeline(t *testing.T, cfg config.Config, transcriber stt.Transcriber) *Pipeline {
	t.Helper()
	log := testLogger()

	store, err := runstore.Open(context.Background(), cfg.RunStore, log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	analyzer := llm.NewAnalyzer(llm.NewMockGenerator(), cfg.LLM, log)
	reports, err := report.NewGenerator(cfg.Report, log)
	if err != nil {
		t.Fatalf("new report generator: %v", err)
	}

	p, err := New(cfg, log, transcriber, analyzer, reports, store, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestProcessMergesOverlappingChunks(t *testing.T) {
	cfg := testConfig(t)
	// 3.2 s at 1 s windows with 0.75 s step yields 4 windows.
	audioPath := writeNoiseWAV(t, cfg.Audio.SampleRate, 3.2, false)

	transcriber := &scriptedTranscriber{texts: []string{
		"the quick brown fox jumps",
		"fox jumps over the lazy dog",
		"the lazy dog sleeps all day",
		"sleeps all day in the warm sun",
	}}
	p := newTestPipeline(t, cfg, transcriber)

	summary, err := p.Process(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if summary.WindowCount != 4 {
		t.Fatalf("expected 4 windows, got %d", summary.WindowCount)
	}
	if summary.ChunksTranscribed != 4 {
		t.Fatalf("expected 4 transcribed chunks, got %d", summary.ChunksTranscribed)
	}

	data, err := os.ReadFile(summary.Documents.Transcript)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	want := "the quick brown fox jumps over the lazy dog sleeps all day in the warm sun"
	if !strings.Contains(string(data), want) {
		t.Fatalf("transcript missing merged text:\n%s", data)
	}
	if summary.WordCount != 16 {
		t.Fatalf("expected 16 words, got %d", summary.WordCount)
	}
	if summary.Documents.Minutes == "" || summary.Documents.ActionItems == "" {
		t.Fatalf("expected analysis documents: %+v", summary.Documents)
	}
	if summary.RunID == "" {
		t.Fatal("expected non-empty run id")
	}
}

func TestProcessSkipsFailedChunks(t *testing.T) {
	cfg := testConfig(t)
	audioPath := writeNoiseWAV(t, cfg.Audio.SampleRate, 3.2, false)

	transcriber := &scriptedTranscriber{
		texts: []string{
			"the quarterly numbers look strong and steady",
			"this chunk will fail",
			"we agreed to ship the release next monday morning",
			"release next monday morning after the final review",
		},
		errAt: 1,
	}
	p := newTestPipeline(t, cfg, transcriber)

	summary, err := p.Process(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if summary.ChunksTranscribed != 3 {
		t.Fatalf("expected 3 transcribed chunks, got %d", summary.ChunksTranscribed)
	}

	data, err := os.ReadFile(summary.Documents.Transcript)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if strings.Contains(string(data), "this chunk will fail") {
		t.Fatal("failed chunk text should not appear in transcript")
	}
	if !strings.Contains(string(data), "quarterly numbers") {
		t.Fatalf("transcript missing surviving chunks:\n%s", data)
	}
}

func TestProcessRejectsSilentRecording(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audio.MinSpeechSeconds = 0.5
	audioPath := writeNoiseWAV(t, cfg.Audio.SampleRate, 3.2, true)

	p := newTestPipeline(t, cfg, &scriptedTranscriber{texts: []string{"unused"}})

	_, err := p.Process(context.Background(), audioPath)
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech, got %v", err)
	}
}

func TestProcessFailsWhenAllChunksFail(t *testing.T) {
	cfg := testConfig(t)
	audioPath := writeNoiseWAV(t, cfg.Audio.SampleRate, 1.2, false)

	p := newTestPipeline(t, cfg, alwaysFail{})

	_, err := p.Process(context.Background(), audioPath)
	if err == nil {
		t.Fatal("expected error when every chunk fails")
	}
}

type alwaysFail struct{}

func (alwaysFail) Transcribe(context.Context, []float64, int) (stt.Result, error) {
	return stt.Result{}, errors.New("backend unavailable")
}

func TestProcessPersistsChunkRecords(t *testing.T) {
	cfg := testConfig(t)
	cfg.RunStore.RetentionMode = "persistent"
	cfg.RunStore.Path = filepath.Join(t.TempDir(), "runs.db")
	audioPath := writeNoiseWAV(t, cfg.Audio.SampleRate, 3.2, false)

	transcriber := &scriptedTranscriber{texts: []string{
		"alpha bravo charlie delta",
		"charlie delta echo foxtrot",
		"echo foxtrot golf hotel",
		"golf hotel india juliett",
	}}

	log := testLogger()
	store, err := runstore.Open(context.Background(), cfg.RunStore, log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	analyzer := llm.NewAnalyzer(llm.NewMockGenerator(), cfg.LLM, log)
	reports, err := report.NewGenerator(cfg.Report, log)
	if err != nil {
		t.Fatalf("new report generator: %v", err)
	}
	p, err := New(cfg, log, transcriber, analyzer, reports, store, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	summary, err := p.Process(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	chunks, err := store.ListRunChunks(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("list chunks: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunk records, got %d", len(chunks))
	}
	if chunks[0].UniqueText != "alpha bravo charlie delta" {
		t.Fatalf("unexpected first record: %+v", chunks[0])
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].AccumulatedLength <= chunks[i-1].AccumulatedLength {
			t.Fatalf("accumulated length should grow: %+v", chunks)
		}
	}
}
