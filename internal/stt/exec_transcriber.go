package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mattn/go-shellwords"

	"github.com/minutelabs/minuted/internal/config"
)

// execTranscriber shells out to an external recognizer (whisper-cli or
// similar). The window is materialized to a temporary WAV file and the
// command must print a JSON object on stdout.
type execTranscriber struct {
	cmd     []string
	cfg     config.STTConfig
	tempDir string
	mu      sync.Mutex
}

type execResult struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// NewExecTranscriber parses the configured command line. The backend is
// constructed once at startup and reused for every window; there is no
// lazy model loading hidden behind the first call.
func NewExecTranscriber(cfg config.STTConfig, tempDir string) (Transcriber, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("stt command is empty")
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &execTranscriber{cmd: args, cfg: cfg, tempDir: tempDir}, nil
}

func (t *execTranscriber) Transcribe(ctx context.Context, samples []float64, sampleRate int) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cfg.TimeoutS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t.cfg.TimeoutS)*time.Second)
		defer cancel()
	}

	file, err := os.CreateTemp(t.tempDir, "minuted_chunk_*.wav")
	if err != nil {
		return Result{}, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := writeSamplesToWAV(file, samples, sampleRate); err != nil {
		return Result{}, err
	}

	base := t.cmd[0]
	args := append([]string{}, t.cmd[1:]...)
	args = append(args, "--audio", file.Name())
	if t.cfg.ModelPath != "" {
		args = append(args, "--model", t.cfg.ModelPath)
	}
	if t.cfg.Language != "" {
		args = append(args, "--language", t.cfg.Language)
	}

	command := exec.CommandContext(ctx, base, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return Result{}, fmt.Errorf("stt command failed: %w: %s", err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Result{}, fmt.Errorf("decode stt response: %w", err)
	}
	return Result{Text: resp.Text, Language: resp.Language}, nil
}

// writeSamplesToWAV encodes normalized float samples as 16-bit mono PCM.
func writeSamplesToWAV(file *os.File, samples []float64, sampleRate int) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}
	buffer := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	enc := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
