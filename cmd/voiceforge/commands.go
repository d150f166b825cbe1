package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/loqalabs/voiceforge/internal/audio"
	"github.com/loqalabs/voiceforge/internal/chunker"
	"github.com/loqalabs/voiceforge/internal/config"
	"github.com/loqalabs/voiceforge/internal/emotion"
	"github.com/loqalabs/voiceforge/internal/history"
	"github.com/loqalabs/voiceforge/internal/tts"
)

// readText returns the text named by file, else the joined args, else stdin.
func readText(file string, args []string, stdin io.Reader) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	}
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func runAnalyze(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	file := fs.String("file", "", "Read text from file")
	sentences := fs.Bool("sentences", false, "Include a per-sentence breakdown")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text, err := readText(*file, fs.Args(), stdin)
	if err != nil {
		return err
	}

	out := struct {
		emotion.Result
		Sentences []emotion.SentenceResult `json:"sentences,omitempty"`
	}{Result: emotion.Analyze(text)}
	if *sentences {
		out.Sentences = emotion.AnalyzeSentences(text)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runChunk(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("chunk", flag.ContinueOnError)
	file := fs.String("file", "", "Read text from file")
	maxChars := fs.Int("max", chunker.DefaultMaxChars, "Maximum characters per segment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *maxChars <= 0 {
		return errors.New("-max must be positive")
	}
	text, err := readText(*file, fs.Args(), stdin)
	if err != nil {
		return err
	}
	for _, seg := range chunker.Split(text, *maxChars) {
		fmt.Fprintf(stdout, "%d\t%d\t%s\n", seg.Index, len([]rune(seg.Text)), seg.Text)
	}
	return nil
}

func runMerge(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	out := fs.String("out", "merged.wav", "Output file")
	format := fs.String("format", "wav", "Audio format of the inputs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("merge needs at least one input file")
	}
	parts := make([][]byte, 0, fs.NArg())
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		parts = append(parts, data)
	}
	merged := audio.Merge(parts, *format)
	if merged.Degraded() {
		fmt.Fprintf(stdout, "warning: merge fell back to first input: %v\n", merged.Fallback)
	}
	if err := os.WriteFile(*out, merged.Audio, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	if audio.IsWAV(*format) {
		if d, err := audio.Duration(merged.Audio); err == nil {
			fmt.Fprintf(stdout, "wrote %s (%d bytes, %.2fs)\n", *out, len(merged.Audio), d)
			return nil
		}
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", *out, len(merged.Audio))
	return nil
}

func runSynth(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("synth", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	file := fs.String("file", "", "Read text from file")
	out := fs.String("out", "", "Output audio file (required)")
	voice := fs.String("voice", "", "Voice id")
	preset := fs.String("emotion", "normal", "Emotion preset")
	intensity := fs.Float64("intensity", 1.0, "Emotion intensity")
	speed := fs.Float64("speed", 1.0, "Speech speed")
	pitch := fs.Int("pitch", 0, "Pitch shift")
	volume := fs.Int("volume", 100, "Volume (0-200)")
	format := fs.String("format", "", "Audio format (defaults to synthesis.audio_format)")
	seed := fs.Int("seed", -1, "Seed for reproducible output, -1 for none")
	auto := fs.Bool("auto-emotion", false, "Detect emotion locally and let the provider choose")
	record := fs.Bool("record", false, "Record the job in the history database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("-out is required")
	}
	text, err := readText(*file, fs.Args(), stdin)
	if err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	level, _ := cfg.Telemetry.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !*record {
		cfg.History.RetentionMode = "ephemeral"
	}
	store, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	factory, err := tts.NewFactory(cfg.Synthesis)
	if err != nil {
		return err
	}
	svc := tts.NewService(ctx, cfg.Synthesis, nil, tts.NewPipeline(cfg.Synthesis, factory, logger), nil, store, logger)
	defer svc.Close()

	params := tts.Params{
		VoiceID:          *voice,
		EmotionPreset:    *preset,
		EmotionIntensity: *intensity,
		Pitch:            *pitch,
		Speed:            *speed,
		Volume:           *volume,
		Format:           *format,
	}
	if *seed >= 0 {
		params.Seed = seed
	}
	res, err := svc.Run(ctx, tts.Job{Text: text, Params: params, AutoEmotion: *auto})
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, res.Audio, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(stdout, "wrote %s (%d segments, %.2fs, job %s)\n", *out, res.Segments, res.Duration, res.ID)
	if res.Detected != nil {
		fmt.Fprintf(stdout, "detected emotion: %s (%.2f)\n", res.Detected.Emotion, res.Detected.Confidence)
	}
	if res.Degraded != nil {
		fmt.Fprintf(stdout, "warning: %v\n", res.Degraded)
	}
	return nil
}

func runValidate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	configPath := fs.String("config", "voiceforge.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "config valid (synthesis mode %s, bus enabled %t)\n", cfg.Synthesis.Mode, cfg.Bus.Enabled)
	return nil
}
