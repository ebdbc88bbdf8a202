package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/minutelabs/minuted/internal/config"
	"github.com/minutelabs/minuted/internal/events"
	"github.com/minutelabs/minuted/internal/llm"
	"github.com/minutelabs/minuted/internal/pipeline"
	"github.com/minutelabs/minuted/internal/report"
	"github.com/minutelabs/minuted/internal/runstore"
	"github.com/minutelabs/minuted/internal/runtime"
	"github.com/minutelabs/minuted/internal/stt"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		outputDir   string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "minuted.yaml", "Path to configuration file")
	flag.StringVar(&outputDir, "output", "", "Override output directory for generated documents")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	// Local .env files carry API keys in development; absence is fine.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: minuted [flags] <recording.wav>")
		os.Exit(2)
	}
	audioPath := flag.Arg(0)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if outputDir != "" {
		cfg.Report.OutputDir = outputDir
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Telemetry.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, audioPath); err != nil {
		logger.Error("run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, audioPath string) error {
	rt, err := runtime.Start(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Shutdown(context.Background())

	embedded, err := events.StartEmbedded(cfg.Bus, logger)
	if err != nil {
		return err
	}
	defer embedded.Shutdown()

	publisher, err := events.Connect(cfg.Bus, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	store, err := runstore.Open(ctx, cfg.RunStore, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	transcriber, err := newTranscriber(cfg)
	if err != nil {
		return err
	}
	generator, err := newGenerator(cfg)
	if err != nil {
		return err
	}
	analyzer := llm.NewAnalyzer(generator, cfg.LLM, logger)

	reports, err := report.NewGenerator(cfg.Report, logger)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, logger, transcriber, analyzer, reports, store, publisher)
	if err != nil {
		return err
	}

	summary, err := p.Process(ctx, audioPath)
	if err != nil {
		return err
	}

	logger.Info("run complete",
		slog.String("run_id", summary.RunID),
		slog.Float64("audio_duration_s", summary.AudioDuration),
		slog.Int("windows", summary.WindowCount),
		slog.Int("chunks_transcribed", summary.ChunksTranscribed),
		slog.Int("words", summary.WordCount),
		slog.Duration("elapsed", summary.Elapsed),
		slog.String("transcript", summary.Documents.Transcript),
		slog.String("minutes", summary.Documents.Minutes),
		slog.String("action_items", summary.Documents.ActionItems))
	return nil
}

func newTranscriber(cfg config.Config) (stt.Transcriber, error) {
	switch cfg.STT.Mode {
	case "exec":
		return stt.NewExecTranscriber(cfg.STT, cfg.Pipeline.TempDir)
	case "mock", "":
		return stt.NewMockTranscriber(), nil
	default:
		return nil, fmt.Errorf("unknown stt mode %q", cfg.STT.Mode)
	}
}

func newGenerator(cfg config.Config) (llm.Generator, error) {
	if !cfg.LLM.Enabled {
		return llm.NewMockGenerator(), nil
	}
	switch cfg.LLM.Mode {
	case "openai":
		return llm.NewOpenAIGenerator(cfg.LLM)
	case "ollama":
		return llm.NewOllamaGenerator(cfg.LLM)
	case "exec":
		return llm.NewExecGenerator(cfg.LLM)
	case "mock", "":
		return llm.NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown llm mode %q", cfg.LLM.Mode)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
