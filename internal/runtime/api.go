package runtime

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/loqalabs/voiceforge/internal/emotion"
	"github.com/loqalabs/voiceforge/internal/history"
	"github.com/loqalabs/voiceforge/internal/tts"
)

const maxRequestBody = 1 << 20

type generateRequest struct {
	Text             string  `json:"text"`
	VoiceID          string  `json:"voice_id"`
	EmotionPreset    string  `json:"emotion_preset"`
	EmotionIntensity float64 `json:"emotion_intensity"`
	Speed            float64 `json:"speed"`
	Pitch            int     `json:"pitch"`
	Volume           int     `json:"volume"`
	AudioFormat      string  `json:"audio_format"`
	Model            string  `json:"model"`
	Seed             *int    `json:"seed"`
	AutoEmotion      bool    `json:"auto_emotion"`
}

type detectedEmotion struct {
	Emotion    string  `json:"detected_emotion"`
	Confidence float64 `json:"confidence"`
}

type generateResponse struct {
	JobID           string           `json:"job_id"`
	AudioBase64     string           `json:"audio_base64"`
	Duration        float64          `json:"duration"`
	Format          string           `json:"format"`
	Segments        int              `json:"segments"`
	Degraded        bool             `json:"degraded,omitempty"`
	DetectedEmotion *detectedEmotion `json:"detected_emotion,omitempty"`
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type sentenceEmotion struct {
	Text       string  `json:"text"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

type analyzeResponse struct {
	DetectedEmotion string             `json:"detected_emotion"`
	Confidence      float64            `json:"confidence"`
	Scores          map[string]float64 `json:"scores"`
	Sentences       []sentenceEmotion  `json:"sentences"`
}

type historyEntry struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id,omitempty"`
	VoiceID   string    `json:"voice_id,omitempty"`
	Format    string    `json:"format"`
	Segments  int       `json:"segments"`
	Bytes     int       `json:"bytes"`
	Duration  float64   `json:"duration"`
	Emotion   string    `json:"emotion,omitempty"`
	Status    string    `json:"status"`
	ErrorKind string    `json:"error_kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Kind   string `json:"kind,omitempty"`
}

// api serves the public JSON endpoints.
type api struct {
	synth    *tts.Service
	emotions *emotion.Service
	history  *history.Store
	logger   *slog.Logger
}

func newAPI(synth *tts.Service, emotions *emotion.Service, store *history.Store, logger *slog.Logger) *api {
	return &api{
		synth:    synth,
		emotions: emotions,
		history:  store,
		logger:   logger.With(slog.String("component", "http-api")),
	}
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/generate", a.handleGenerate)
	mux.HandleFunc("POST /v1/analyze-emotion", a.handleAnalyze)
	mux.HandleFunc("GET /v1/analyze-emotion/stream", a.handleAnalyzeStream)
	mux.HandleFunc("GET /v1/history", a.handleHistory)
}

func (a *api) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error(), Kind: tts.KindValidation.String()})
		return
	}
	if req.VoiceID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "voice_id is required", Kind: tts.KindValidation.String()})
		return
	}

	job := tts.Job{
		RequestID: r.Header.Get("X-Request-ID"),
		Text:      req.Text,
		Params: tts.Params{
			VoiceID:          req.VoiceID,
			EmotionPreset:    req.EmotionPreset,
			EmotionIntensity: req.EmotionIntensity,
			Pitch:            req.Pitch,
			Speed:            req.Speed,
			Volume:           req.Volume,
			Format:           req.AudioFormat,
			Model:            req.Model,
			Seed:             req.Seed,
			APIKey:           r.Header.Get("X-API-Key"),
		},
		AutoEmotion: req.AutoEmotion,
	}
	out, err := a.synth.Run(r.Context(), job)
	if err != nil {
		kind := tts.KindOf(err)
		writeJSON(w, tts.HTTPStatus(kind), errorResponse{Detail: err.Error(), Kind: kind.String()})
		return
	}

	resp := generateResponse{
		JobID:       out.ID,
		AudioBase64: base64.StdEncoding.EncodeToString(out.Audio),
		Duration:    out.Duration,
		Format:      out.Format,
		Segments:    out.Segments,
		Degraded:    out.Degraded != nil,
	}
	if out.Detected != nil {
		resp.DetectedEmotion = &detectedEmotion{Emotion: string(out.Detected.Emotion), Confidence: out.Detected.Confidence}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
		return
	}
	report := a.emotions.Report(r.Context(), req.Text, true)
	resp := analyzeResponse{
		DetectedEmotion: report.Emotion,
		Confidence:      report.Confidence,
		Scores:          report.Scores,
		Sentences:       make([]sentenceEmotion, 0, len(report.Sentences)),
	}
	for _, s := range report.Sentences {
		resp.Sentences = append(resp.Sentences, sentenceEmotion{Text: s.Text, Emotion: s.Emotion, Confidence: s.Confidence})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	entries := []historyEntry{}
	if a.history != nil {
		jobs, err := a.history.List(r.Context(), limit)
		if err != nil {
			a.logger.Error("list history failed", slogError(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "history unavailable"})
			return
		}
		for _, j := range jobs {
			entries = append(entries, historyEntry(j))
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
