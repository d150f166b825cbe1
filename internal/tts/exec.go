package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"

	"github.com/mattn/go-shellwords"
)

type execSynth struct {
	cmd []string
}

type execRequest struct {
	Text             string  `json:"text"`
	VoiceID          string  `json:"voice_id"`
	EmotionPreset    string  `json:"emotion_preset,omitempty"`
	EmotionIntensity float64 `json:"emotion_intensity,omitempty"`
	Pitch            int     `json:"pitch"`
	Speed            float64 `json:"speed,omitempty"`
	Volume           int     `json:"volume,omitempty"`
	AudioFormat      string  `json:"audio_format"`
	Model            string  `json:"model,omitempty"`
	Seed             *int    `json:"seed,omitempty"`
}

type execResponse struct {
	AudioBase64 string  `json:"audio_base64"`
	Duration    float64 `json:"duration"`
	Error       string  `json:"error,omitempty"`
	ErrorKind   string  `json:"error_kind,omitempty"`
}

// NewExecSynth runs command once per request, writing the request as JSON on
// stdin and reading a single JSON response from stdout.
func NewExecSynth(command string) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &execSynth{cmd: args}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, req Request) (Audio, error) {
	payload, err := json.Marshal(execRequest{
		Text:             req.Text,
		VoiceID:          req.VoiceID,
		EmotionPreset:    req.EmotionPreset,
		EmotionIntensity: req.EmotionIntensity,
		Pitch:            req.Pitch,
		Speed:            req.Speed,
		Volume:           req.Volume,
		AudioFormat:      req.Format,
		Model:            req.Model,
		Seed:             req.Seed,
	})
	if err != nil {
		return Audio{}, NewProviderError(KindValidation, err)
	}

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Audio{}, NewProviderError(KindTransport, ctxErr)
		}
		return Audio{}, NewProviderError(KindTransport, fmt.Errorf("tts exec command failed: %w: %s", err, stderr.String()))
	}

	var resp execResponse
	if err := json.Unmarshal(output, &resp); err != nil {
		return Audio{}, NewProviderError(KindTransport, fmt.Errorf("decode tts exec response: %w", err))
	}
	if resp.Error != "" {
		return Audio{}, NewProviderError(ParseKind(resp.ErrorKind), errors.New(resp.Error))
	}
	data, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
	if err != nil {
		return Audio{}, NewProviderError(KindTransport, fmt.Errorf("decode tts exec audio: %w", err))
	}
	return Audio{Data: data, Duration: resp.Duration}, nil
}
