package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	History     HistoryConfig   `yaml:"history"`
	Synthesis   SynthesisConfig `yaml:"synthesis"`
	Emotion     EmotionConfig   `yaml:"emotion"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"` // ephemeral, persistent
	RetentionDays int    `yaml:"retention_days"`
	MaxJobs       int    `yaml:"max_jobs"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type SynthesisConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Mode             string `yaml:"mode"` // mock, http, exec
	Endpoint         string `yaml:"endpoint"`
	APIKey           string `yaml:"api_key"`
	Command          string `yaml:"command"`
	Model            string `yaml:"model"`
	DefaultVoice     string `yaml:"default_voice"`
	AudioFormat      string `yaml:"audio_format"`
	MaxSegmentChars  int    `yaml:"max_segment_chars"`
	Concurrency      int    `yaml:"concurrency"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
	SampleRate       int    `yaml:"sample_rate"`
	Channels         int    `yaml:"channels"`
}

type EmotionConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() Config {
	return Config{
		RuntimeName: "voiceforge",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8000,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		History: HistoryConfig{
			Path:          "./data/voiceforge-history.db",
			RetentionMode: "persistent",
			RetentionDays: 30,
			MaxJobs:       10000,
		},
		Synthesis: SynthesisConfig{
			Enabled:          true,
			Mode:             "mock",
			Endpoint:         "https://api.typecast.ai",
			Model:            "ssfm-v21",
			AudioFormat:      "wav",
			MaxSegmentChars:  1500,
			Concurrency:      3,
			RequestTimeoutMS: 120000,
			SampleRate:       44100,
			Channels:         1,
		},
		Emotion: EmotionConfig{
			Enabled: true,
		},
	}
}

// Level parses log_level (debug, info, warn, error).
func (t TelemetryConfig) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(t.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("telemetry.log_level: %w", err)
	}
	return level, nil
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
	overrideString(&cfg.RuntimeName, "VOICEFORGE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "VOICEFORGE_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "VOICEFORGE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VOICEFORGE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "VOICEFORGE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VOICEFORGE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VOICEFORGE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "VOICEFORGE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "VOICEFORGE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VOICEFORGE_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "VOICEFORGE_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "VOICEFORGE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VOICEFORGE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VOICEFORGE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VOICEFORGE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VOICEFORGE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VOICEFORGE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.History.Path, "VOICEFORGE_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "VOICEFORGE_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "VOICEFORGE_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxJobs, "VOICEFORGE_HISTORY_MAX_JOBS")
	overrideBool(&cfg.History.VacuumOnStart, "VOICEFORGE_HISTORY_VACUUM_ON_START")
	overrideBool(&cfg.Synthesis.Enabled, "VOICEFORGE_SYNTHESIS_ENABLED")
	overrideString(&cfg.Synthesis.Mode, "VOICEFORGE_SYNTHESIS_MODE")
	overrideString(&cfg.Synthesis.Endpoint, "VOICEFORGE_SYNTHESIS_ENDPOINT")
	overrideString(&cfg.Synthesis.APIKey, "TYPECAST_API_KEY")
	overrideString(&cfg.Synthesis.APIKey, "VOICEFORGE_SYNTHESIS_API_KEY")
	overrideString(&cfg.Synthesis.Command, "VOICEFORGE_SYNTHESIS_COMMAND")
	overrideString(&cfg.Synthesis.Model, "VOICEFORGE_SYNTHESIS_MODEL")
	overrideString(&cfg.Synthesis.DefaultVoice, "VOICEFORGE_SYNTHESIS_DEFAULT_VOICE")
	overrideString(&cfg.Synthesis.AudioFormat, "VOICEFORGE_SYNTHESIS_AUDIO_FORMAT")
	overrideInt(&cfg.Synthesis.MaxSegmentChars, "VOICEFORGE_SYNTHESIS_MAX_SEGMENT_CHARS")
	overrideInt(&cfg.Synthesis.Concurrency, "VOICEFORGE_SYNTHESIS_CONCURRENCY")
	overrideInt(&cfg.Synthesis.RequestTimeoutMS, "VOICEFORGE_SYNTHESIS_REQUEST_TIMEOUT_MS")
	overrideInt(&cfg.Synthesis.SampleRate, "VOICEFORGE_SYNTHESIS_SAMPLE_RATE")
	overrideInt(&cfg.Synthesis.Channels, "VOICEFORGE_SYNTHESIS_CHANNELS")
	overrideBool(&cfg.Emotion.Enabled, "VOICEFORGE_EMOTION_ENABLED")
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
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if _, err := cfg.Telemetry.Level(); err != nil {
		return err
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
	switch cfg.History.RetentionMode {
	case "ephemeral":
	case "persistent":
		if cfg.History.Path == "" {
			return errors.New("history.path must not be empty when retention_mode=persistent")
		}
	default:
		return errors.New("history.retention_mode must be one of ephemeral|persistent")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	if cfg.Synthesis.Enabled {
		switch cfg.Synthesis.Mode {
		case "mock", "http", "exec":
		default:
			return errors.New("synthesis.mode must be one of mock|http|exec")
		}
		if cfg.Synthesis.Mode == "http" && cfg.Synthesis.Endpoint == "" {
			return errors.New("synthesis.endpoint must be set when mode=http")
		}
		if cfg.Synthesis.Mode == "exec" && cfg.Synthesis.Command == "" {
			return errors.New("synthesis.command must be set when mode=exec")
		}
		if cfg.Synthesis.AudioFormat == "" {
			return errors.New("synthesis.audio_format must not be empty")
		}
		if cfg.Synthesis.MaxSegmentChars <= 0 {
			return errors.New("synthesis.max_segment_chars must be positive")
		}
		if cfg.Synthesis.Concurrency <= 0 {
			return errors.New("synthesis.concurrency must be >= 1")
		}
		if cfg.Synthesis.RequestTimeoutMS < 0 {
			return errors.New("synthesis.request_timeout_ms must be >= 0")
		}
		if cfg.Synthesis.SampleRate <= 0 {
			return errors.New("synthesis.sample_rate must be positive")
		}
		if cfg.Synthesis.Channels <= 0 {
			return errors.New("synthesis.channels must be positive")
		}
	}
	return nil
}
