package tts

import "context"

// Params are the synthesis settings shared by every segment of a request.
type Params struct {
	VoiceID          string
	EmotionPreset    string
	EmotionIntensity float64
	Pitch            int
	Speed            float64
	Volume           int
	Format           string
	Model            string
	Seed             *int
	APIKey           string
}

// Request defaults applied to fields a caller left unset.
const (
	DefaultEmotionPreset    = "normal"
	DefaultEmotionIntensity = 1.0
	DefaultSpeed            = 1.0
	DefaultVolume           = 100
)

// WithDefaults returns p with zero-valued preset, intensity, speed and volume
// replaced by the request defaults.
func (p Params) WithDefaults() Params {
	if p.EmotionPreset == "" {
		p.EmotionPreset = DefaultEmotionPreset
	}
	if p.EmotionIntensity == 0 {
		p.EmotionIntensity = DefaultEmotionIntensity
	}
	if p.Speed == 0 {
		p.Speed = DefaultSpeed
	}
	if p.Volume == 0 {
		p.Volume = DefaultVolume
	}
	return p
}

// Request asks a backend to speak a single piece of text.
type Request struct {
	Params
	Text string
}

// Audio is a backend response.
type Audio struct {
	Data     []byte
	Duration float64 // seconds
}

// Outcome is the synthesized audio of one segment.
type Outcome struct {
	Index    int
	Audio    []byte
	Duration float64
}

// Synthesizer is the contract for a speech backend. Implementations are not
// assumed safe for concurrent use; the pipeline builds one per worker.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Audio, error)
}

// Factory builds a fresh backend instance.
type Factory func() (Synthesizer, error)
