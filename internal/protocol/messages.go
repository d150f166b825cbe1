package protocol

import "time"

// SynthesisRequest asks the synthesis service to speak text.
type SynthesisRequest struct {
	RequestID        string  `json:"request_id,omitempty"`
	Text             string  `json:"text"`
	VoiceID          string  `json:"voice_id,omitempty"`
	EmotionPreset    string  `json:"emotion_preset,omitempty"`
	EmotionIntensity float64 `json:"emotion_intensity,omitempty"`
	Pitch            int     `json:"pitch,omitempty"`
	Speed            float64 `json:"speed,omitempty"`
	Volume           int     `json:"volume,omitempty"`
	AudioFormat      string  `json:"audio_format,omitempty"`
	Model            string  `json:"model,omitempty"`
	Seed             *int    `json:"seed,omitempty"`
	AutoEmotion      bool    `json:"auto_emotion,omitempty"`
}

// SynthesisReply carries either the merged audio or a classified error.
type SynthesisReply struct {
	JobID             string  `json:"job_id,omitempty"`
	RequestID         string  `json:"request_id,omitempty"`
	Audio             []byte  `json:"audio,omitempty"`
	AudioFormat       string  `json:"audio_format,omitempty"`
	Duration          float64 `json:"duration"`
	Segments          int     `json:"segments"`
	DetectedEmotion   string  `json:"detected_emotion,omitempty"`
	EmotionConfidence float64 `json:"emotion_confidence,omitempty"`
	Degraded          bool    `json:"degraded,omitempty"`
	Error             string  `json:"error,omitempty"`
	ErrorKind         string  `json:"error_kind,omitempty"`
}

// SynthesisEvent is broadcast once a synthesis job finishes.
type SynthesisEvent struct {
	JobID     string    `json:"job_id"`
	RequestID string    `json:"request_id,omitempty"`
	VoiceID   string    `json:"voice_id,omitempty"`
	Segments  int       `json:"segments"`
	Bytes     int       `json:"bytes"`
	Duration  float64   `json:"duration"`
	Status    string    `json:"status"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EmotionRequest asks for an emotion estimate of text.
type EmotionRequest struct {
	Text      string `json:"text"`
	Sentences bool   `json:"sentences,omitempty"`
}

// EmotionScore is a single sentence estimate.
type EmotionScore struct {
	Text       string  `json:"text"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// EmotionReply is the overall estimate plus an optional sentence breakdown.
type EmotionReply struct {
	Emotion    string             `json:"emotion"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
	Sentences  []EmotionScore     `json:"sentences,omitempty"`
	Error      string             `json:"error,omitempty"`
}

const (
	SubjectSynthesize     = "tts.synthesize"
	SubjectSynthesisDone  = "tts.synthesis.done"
	SubjectEmotionAnalyze = "emotion.analyze"
)
