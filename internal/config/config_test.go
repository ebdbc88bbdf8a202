package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected default sample rate 16000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.ChunkDuration != 30 || cfg.Audio.OverlapDuration != 8 {
		t.Fatalf("unexpected default window config: %+v", cfg.Audio)
	}
	if cfg.STT.Mode != "mock" {
		t.Fatalf("expected mock stt by default, got %q", cfg.STT.Mode)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MINUTED_AUDIO_SAMPLE_RATE", "8000")
	t.Setenv("MINUTED_AUDIO_CHUNK_DURATION_S", "10")
	t.Setenv("MINUTED_AUDIO_OVERLAP_DURATION_S", "2.5")
	t.Setenv("MINUTED_AUDIO_MIN_SPEECH_S", "1")
	t.Setenv("MINUTED_STT_MODE", "exec")
	t.Setenv("MINUTED_STT_COMMAND", "whisper-cli --json")
	t.Setenv("MINUTED_LLM_MODE", "openai")
	t.Setenv("MINUTED_LLM_API_KEY", "secret")
	t.Setenv("MINUTED_LLM_MODEL", "llama-3.1-8b-instant")
	t.Setenv("MINUTED_BUS_ENABLED", "true")
	t.Setenv("MINUTED_BUS_EMBEDDED", "false")
	t.Setenv("MINUTED_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("MINUTED_RUN_STORE_RETENTION_MODE", "ephemeral")
	t.Setenv("MINUTED_PIPELINE_CONCURRENCY", "4")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Audio.SampleRate != 8000 {
		t.Fatalf("expected sample rate override, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.ChunkDuration != 10 || cfg.Audio.OverlapDuration != 2.5 {
		t.Fatalf("expected window overrides, got %+v", cfg.Audio)
	}
	if cfg.STT.Mode != "exec" || cfg.STT.Command != "whisper-cli --json" {
		t.Fatalf("expected stt overrides, got %+v", cfg.STT)
	}
	if cfg.LLM.Mode != "openai" || cfg.LLM.APIKey != "secret" {
		t.Fatalf("expected llm overrides, got %+v", cfg.LLM)
	}
	if cfg.LLM.Model != "llama-3.1-8b-instant" {
		t.Fatalf("expected llm model override, got %q", cfg.LLM.Model)
	}
	if !cfg.Bus.Enabled || cfg.Bus.Embedded {
		t.Fatalf("expected bus overrides, got %+v", cfg.Bus)
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.RunStore.RetentionMode != "ephemeral" {
		t.Fatalf("expected retention mode override, got %q", cfg.RunStore.RetentionMode)
	}
	if cfg.Pipeline.Concurrency != 4 {
		t.Fatalf("expected concurrency override, got %d", cfg.Pipeline.Concurrency)
	}
}

func TestValidateRejectsOverlapNotSmallerThanChunk(t *testing.T) {
	t.Setenv("MINUTED_AUDIO_CHUNK_DURATION_S", "10")
	t.Setenv("MINUTED_AUDIO_OVERLAP_DURATION_S", "10")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for overlap >= chunk duration")
	}
}

func TestValidateRejectsExecWithoutCommand(t *testing.T) {
	t.Setenv("MINUTED_STT_MODE", "exec")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for exec stt without command")
	}
}
