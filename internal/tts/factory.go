package tts

import (
	"fmt"

	"github.com/loqalabs/voiceforge/internal/config"
)

// NewFactory selects the backend configured in cfg.Mode.
func NewFactory(cfg config.SynthesisConfig) (Factory, error) {
	switch cfg.Mode {
	case "mock", "":
		return func() (Synthesizer, error) {
			return NewMockSynth(cfg.SampleRate, cfg.Channels), nil
		}, nil
	case "http":
		return func() (Synthesizer, error) {
			return NewHTTPSynth(cfg.Endpoint, cfg.APIKey, cfg.Model), nil
		}, nil
	case "exec":
		if _, err := NewExecSynth(cfg.Command); err != nil {
			return nil, err
		}
		return func() (Synthesizer, error) {
			return NewExecSynth(cfg.Command)
		}, nil
	}
	return nil, fmt.Errorf("unsupported synthesis mode %q", cfg.Mode)
}
