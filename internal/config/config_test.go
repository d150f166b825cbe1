package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Synthesis.MaxSegmentChars != 1500 {
		t.Fatalf("expected default max segment chars 1500, got %d", cfg.Synthesis.MaxSegmentChars)
	}
	if cfg.Synthesis.Concurrency != 3 {
		t.Fatalf("expected default concurrency 3, got %d", cfg.Synthesis.Concurrency)
	}
	if cfg.Synthesis.AudioFormat != "wav" {
		t.Fatalf("expected default format wav, got %q", cfg.Synthesis.AudioFormat)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiceforge.yaml")
	data := []byte(`runtime_name: forge-test
synthesis:
  mode: exec
  command: "python3 synth.py --fast"
  audio_format: mp3
  concurrency: 5
history:
  retention_mode: ephemeral
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RuntimeName != "forge-test" {
		t.Fatalf("expected runtime name from file, got %q", cfg.RuntimeName)
	}
	if cfg.Synthesis.Mode != "exec" || cfg.Synthesis.Concurrency != 5 || cfg.Synthesis.AudioFormat != "mp3" {
		t.Fatalf("unexpected synthesis config: %+v", cfg.Synthesis)
	}
	if cfg.Synthesis.MaxSegmentChars != 1500 {
		t.Fatalf("expected untouched default to survive, got %d", cfg.Synthesis.MaxSegmentChars)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VOICEFORGE_BUS_ENABLED", "true")
	t.Setenv("VOICEFORGE_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("VOICEFORGE_BUS_EMBEDDED", "false")
	t.Setenv("VOICEFORGE_BUS_USERNAME", "alice")
	t.Setenv("VOICEFORGE_BUS_PASSWORD", "secret")
	t.Setenv("VOICEFORGE_HISTORY_PATH", "./tmp.db")
	t.Setenv("VOICEFORGE_HISTORY_MAX_JOBS", "123")
	t.Setenv("VOICEFORGE_SYNTHESIS_MODE", "http")
	t.Setenv("VOICEFORGE_SYNTHESIS_CONCURRENCY", "2")
	t.Setenv("VOICEFORGE_SYNTHESIS_MAX_SEGMENT_CHARS", "800")
	t.Setenv("TYPECAST_API_KEY", "legacy-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if cfg.History.Path != "./tmp.db" || cfg.History.MaxJobs != 123 {
		t.Fatalf("expected history overrides, got %+v", cfg.History)
	}
	if cfg.Synthesis.Mode != "http" {
		t.Fatalf("expected synthesis mode override")
	}
	if cfg.Synthesis.Concurrency != 2 || cfg.Synthesis.MaxSegmentChars != 800 {
		t.Fatalf("expected synthesis limits override, got %+v", cfg.Synthesis)
	}
	if cfg.Synthesis.APIKey != "legacy-key" {
		t.Fatalf("expected api key from TYPECAST_API_KEY, got %q", cfg.Synthesis.APIKey)
	}

	t.Setenv("VOICEFORGE_SYNTHESIS_API_KEY", "explicit-key")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Synthesis.APIKey != "explicit-key" {
		t.Fatalf("expected explicit api key to win, got %q", cfg.Synthesis.APIKey)
	}
}

func TestValidateRejectsBadSynthesis(t *testing.T) {
	cfg := Default()
	cfg.Synthesis.Mode = "grpc"
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for unknown synthesis mode")
	}

	cfg = Default()
	cfg.Synthesis.Mode = "exec"
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for exec mode without command")
	}

	cfg = Default()
	cfg.Synthesis.Concurrency = 0
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for zero concurrency")
	}

	cfg = Default()
	cfg.History.RetentionMode = "session"
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for unknown retention mode")
	}
}

func TestTelemetryLevel(t *testing.T) {
	level, err := TelemetryConfig{LogLevel: "debug"}.Level()
	if err != nil || level != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v (%v)", level, err)
	}
	cfg := Default()
	cfg.Telemetry.LogLevel = "loud"
	if err := validate(cfg); err == nil {
		t.Fatalf("expected invalid log level to be rejected")
	}
}
