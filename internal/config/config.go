package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type AudioConfig struct {
	SampleRate       int     `yaml:"sample_rate"`
	ChunkDuration    float64 `yaml:"chunk_duration_s"`
	OverlapDuration  float64 `yaml:"overlap_duration_s"`
	MinSpeechSeconds float64 `yaml:"min_speech_s"`
}

type STTConfig struct {
	Mode      string `yaml:"mode"` // mock, exec
	Command   string `yaml:"command"`
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
	TimeoutS  int    `yaml:"timeout_s"`
}

type LLMConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Mode        string  `yaml:"mode"` // mock, openai, ollama, exec
	Endpoint    string  `yaml:"endpoint"`
	APIKey      string  `yaml:"api_key"`
	Command     string  `yaml:"command"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutS    int     `yaml:"timeout_s"`
}

type ReportConfig struct {
	OutputDir      string `yaml:"output_dir"`
	ConvertCommand string `yaml:"convert_command"`
}

type RunStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"` // ephemeral, persistent
	RetentionDays int    `yaml:"retention_days"`
	MaxRuns       int    `yaml:"max_runs"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type PipelineConfig struct {
	Concurrency int    `yaml:"concurrency"`
	TempDir     string `yaml:"temp_dir"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Audio       AudioConfig     `yaml:"audio"`
	STT         STTConfig       `yaml:"stt"`
	LLM         LLMConfig       `yaml:"llm"`
	Report      ReportConfig    `yaml:"report"`
	RunStore    RunStoreConfig  `yaml:"run_store"`
	Bus         BusConfig       `yaml:"bus"`
	Pipeline    PipelineConfig  `yaml:"pipeline"`
}

func Default() Config {
	return Config{
		ServiceName: "minuted",
		Environment: "development",
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: "",
		},
		Audio: AudioConfig{
			SampleRate:       16000,
			ChunkDuration:    30,
			OverlapDuration:  8,
			MinSpeechSeconds: 3,
		},
		STT: STTConfig{
			Mode:     "mock",
			TimeoutS: 120,
		},
		LLM: LLMConfig{
			Enabled:     true,
			Mode:        "mock",
			Model:       "llama-3.3-70b-versatile",
			MaxTokens:   2000,
			Temperature: 0.1,
			TimeoutS:    60,
		},
		Report: ReportConfig{
			OutputDir: "./output",
		},
		RunStore: RunStoreConfig{
			Path:          "./data/minuted-runs.db",
			RetentionMode: "persistent",
			RetentionDays: 30,
			MaxRuns:       1000,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Pipeline: PipelineConfig{
			Concurrency: 2,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "MINUTED_SERVICE_NAME")
	overrideString(&cfg.Environment, "MINUTED_ENVIRONMENT")
	overrideString(&cfg.Telemetry.LogLevel, "MINUTED_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "MINUTED_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "MINUTED_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "MINUTED_TELEMETRY_PROMETHEUS_BIND")
	overrideInt(&cfg.Audio.SampleRate, "MINUTED_AUDIO_SAMPLE_RATE")
	overrideFloat(&cfg.Audio.ChunkDuration, "MINUTED_AUDIO_CHUNK_DURATION_S")
	overrideFloat(&cfg.Audio.OverlapDuration, "MINUTED_AUDIO_OVERLAP_DURATION_S")
	overrideFloat(&cfg.Audio.MinSpeechSeconds, "MINUTED_AUDIO_MIN_SPEECH_S")
	overrideString(&cfg.STT.Mode, "MINUTED_STT_MODE")
	overrideString(&cfg.STT.Command, "MINUTED_STT_COMMAND")
	overrideString(&cfg.STT.ModelPath, "MINUTED_STT_MODEL_PATH")
	overrideString(&cfg.STT.Language, "MINUTED_STT_LANGUAGE")
	overrideInt(&cfg.STT.TimeoutS, "MINUTED_STT_TIMEOUT_S")
	overrideBool(&cfg.LLM.Enabled, "MINUTED_LLM_ENABLED")
	overrideString(&cfg.LLM.Mode, "MINUTED_LLM_MODE")
	overrideString(&cfg.LLM.Endpoint, "MINUTED_LLM_ENDPOINT")
	overrideString(&cfg.LLM.APIKey, "MINUTED_LLM_API_KEY")
	overrideString(&cfg.LLM.Command, "MINUTED_LLM_COMMAND")
	overrideString(&cfg.LLM.Model, "MINUTED_LLM_MODEL")
	overrideInt(&cfg.LLM.MaxTokens, "MINUTED_LLM_MAX_TOKENS")
	overrideFloat(&cfg.LLM.Temperature, "MINUTED_LLM_TEMPERATURE")
	overrideInt(&cfg.LLM.TimeoutS, "MINUTED_LLM_TIMEOUT_S")
	overrideString(&cfg.Report.OutputDir, "MINUTED_REPORT_OUTPUT_DIR")
	overrideString(&cfg.Report.ConvertCommand, "MINUTED_REPORT_CONVERT_COMMAND")
	overrideString(&cfg.RunStore.Path, "MINUTED_RUN_STORE_PATH")
	overrideString(&cfg.RunStore.RetentionMode, "MINUTED_RUN_STORE_RETENTION_MODE")
	overrideInt(&cfg.RunStore.RetentionDays, "MINUTED_RUN_STORE_RETENTION_DAYS")
	overrideInt(&cfg.RunStore.MaxRuns, "MINUTED_RUN_STORE_MAX_RUNS")
	overrideBool(&cfg.RunStore.VacuumOnStart, "MINUTED_RUN_STORE_VACUUM_ON_START")
	overrideBool(&cfg.Bus.Enabled, "MINUTED_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "MINUTED_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "MINUTED_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "MINUTED_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "MINUTED_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "MINUTED_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "MINUTED_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "MINUTED_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "MINUTED_BUS_CONNECT_TIMEOUT_MS")
	overrideInt(&cfg.Pipeline.Concurrency, "MINUTED_PIPELINE_CONCURRENCY")
	overrideString(&cfg.Pipeline.TempDir, "MINUTED_PIPELINE_TEMP_DIR")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.ChunkDuration <= 0 {
		return errors.New("audio.chunk_duration_s must be positive")
	}
	if cfg.Audio.OverlapDuration < 0 {
		return errors.New("audio.overlap_duration_s must be >= 0")
	}
	if cfg.Audio.OverlapDuration >= cfg.Audio.ChunkDuration {
		return errors.New("audio.overlap_duration_s must be less than chunk_duration_s")
	}
	if cfg.Audio.MinSpeechSeconds < 0 {
		return errors.New("audio.min_speech_s must be >= 0")
	}
	if cfg.Audio.MinSpeechSeconds > cfg.Audio.ChunkDuration {
		return errors.New("audio.min_speech_s must not exceed chunk_duration_s")
	}
	switch cfg.STT.Mode {
	case "mock", "exec":
	default:
		return errors.New("stt.mode must be one of mock|exec")
	}
	if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
		return errors.New("stt.command must be set when mode=exec")
	}
	if cfg.LLM.Enabled {
		switch cfg.LLM.Mode {
		case "mock", "openai", "ollama", "exec":
		default:
			return errors.New("llm.mode must be one of mock|openai|ollama|exec")
		}
		if cfg.LLM.Mode == "openai" && cfg.LLM.APIKey == "" {
			return errors.New("llm.api_key must be set when mode=openai")
		}
		if cfg.LLM.Mode == "ollama" && cfg.LLM.Endpoint == "" {
			return errors.New("llm.endpoint must be set when mode=ollama")
		}
		if cfg.LLM.Mode == "exec" && cfg.LLM.Command == "" {
			return errors.New("llm.command must be set when mode=exec")
		}
		if cfg.LLM.MaxTokens < 0 {
			return errors.New("llm.max_tokens must be >= 0")
		}
	}
	if cfg.Report.OutputDir == "" {
		return errors.New("report.output_dir must not be empty")
	}
	switch cfg.RunStore.RetentionMode {
	case "ephemeral", "persistent":
	default:
		return errors.New("run_store.retention_mode must be one of ephemeral|persistent")
	}
	if cfg.RunStore.RetentionMode == "persistent" && cfg.RunStore.Path == "" {
		return errors.New("run_store.path must not be empty when retention is persistent")
	}
	if cfg.RunStore.RetentionDays < 0 {
		return errors.New("run_store.retention_days must be >= 0")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Pipeline.Concurrency <= 0 {
		return errors.New("pipeline.concurrency must be >= 1")
	}
	return nil
}
