package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/loqalabs/voiceforge/internal/audio"
)

const maxErrorBody = 4096

type httpSynth struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

type httpRequest struct {
	Text    string      `json:"text"`
	Model   string      `json:"model"`
	VoiceID string      `json:"voice_id"`
	Prompt  *httpPrompt `json:"prompt,omitempty"`
	Output  httpOutput  `json:"output"`
	Seed    *int        `json:"seed,omitempty"`
}

type httpPrompt struct {
	EmotionPreset    string  `json:"emotion_preset,omitempty"`
	EmotionIntensity float64 `json:"emotion_intensity,omitempty"`
}

type httpOutput struct {
	AudioPitch  int     `json:"audio_pitch"`
	AudioTempo  float64 `json:"audio_tempo,omitempty"`
	AudioFormat string  `json:"audio_format"`
	Volume      int     `json:"volume,omitempty"`
}

// NewHTTPSynth calls a Typecast-style REST endpoint. Each instance owns its
// own http.Client.
func NewHTTPSynth(endpoint, apiKey, model string) Synthesizer {
	return &httpSynth{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{},
	}
}

func (h *httpSynth) Synthesize(ctx context.Context, req Request) (Audio, error) {
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = h.apiKey
	}
	if apiKey == "" {
		return Audio{}, NewProviderError(KindValidation, errors.New("api key is required"))
	}
	model := req.Model
	if model == "" {
		model = h.model
	}

	payload := httpRequest{
		Text:    req.Text,
		Model:   model,
		VoiceID: req.VoiceID,
		Output: httpOutput{
			AudioPitch:  req.Pitch,
			AudioTempo:  req.Speed,
			AudioFormat: req.Format,
			Volume:      req.Volume,
		},
		Seed: req.Seed,
	}
	if req.EmotionPreset != "" || req.EmotionIntensity != 0 {
		payload.Prompt = &httpPrompt{EmotionPreset: req.EmotionPreset, EmotionIntensity: req.EmotionIntensity}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Audio{}, NewProviderError(KindValidation, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+"/v1/text-to-speech", bytes.NewReader(body))
	if err != nil {
		return Audio{}, NewProviderError(KindValidation, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", apiKey)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Audio{}, NewProviderError(KindTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Audio{}, classifyHTTPError(resp.StatusCode, resp.Status, string(msg))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, NewProviderError(KindTransport, fmt.Errorf("read audio: %w", err))
	}
	return Audio{Data: data, Duration: responseDuration(resp.Header, data, req.Format)}, nil
}

func classifyHTTPError(code int, status, body string) error {
	err := fmt.Errorf("provider returned status %s: %s", status, strings.TrimSpace(body))
	switch {
	case code == http.StatusPaymentRequired,
		strings.Contains(body, "QUOTA_INSUFFICIENT"),
		strings.Contains(body, "Payment required"):
		return NewProviderError(KindQuota, err)
	case code == http.StatusBadRequest,
		code == http.StatusUnprocessableEntity,
		code == http.StatusUnauthorized,
		code == http.StatusForbidden,
		strings.Contains(body, "Validation error"):
		return NewProviderError(KindValidation, err)
	}
	return NewProviderError(KindTransport, err)
}

// responseDuration prefers the provider's duration header and falls back to
// the WAV header for wav payloads.
func responseDuration(h http.Header, data []byte, format string) float64 {
	if v := h.Get("X-Audio-Duration"); v != "" {
		if d, err := strconv.ParseFloat(v, 64); err == nil {
			return d
		}
	}
	if audio.IsWAV(format) {
		if d, err := audio.Duration(data); err == nil {
			return d
		}
	}
	return 0
}
