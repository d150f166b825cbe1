package tts

import (
	"context"
	"math"
	"time"
	"unicode/utf8"

	"github.com/loqalabs/voiceforge/internal/audio"
)

// secondsPerChar approximates speaking rate for generated audio length.
const secondsPerChar = 0.06

type mockSynth struct {
	sampleRate int
	channels   int
	delay      time.Duration
}

// NewMockSynth returns a backend that speaks a quiet tone whose length
// follows the text length. WAV requests get a WAV container, others raw PCM.
func NewMockSynth(sampleRate, channels int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate, channels: channels, delay: 20 * time.Millisecond}
}

func (m *mockSynth) Synthesize(ctx context.Context, req Request) (Audio, error) {
	select {
	case <-ctx.Done():
		return Audio{}, ctx.Err()
	case <-time.After(m.delay):
	}

	seconds := float64(utf8.RuneCountInString(req.Text)) * secondsPerChar
	if req.Speed > 0 {
		seconds /= req.Speed
	}
	frames := int(seconds * float64(m.sampleRate))
	seconds = float64(frames) / float64(m.sampleRate)

	pcm := make([]byte, frames*m.channels*2)
	for i := 0; i < frames; i++ {
		v := int16(800 * math.Sin(2*math.Pi*220*float64(i)/float64(m.sampleRate)))
		for c := 0; c < m.channels; c++ {
			off := (i*m.channels + c) * 2
			pcm[off] = byte(v)
			pcm[off+1] = byte(v >> 8)
		}
	}

	if !audio.IsWAV(req.Format) {
		return Audio{Data: pcm, Duration: seconds}, nil
	}
	data, err := audio.EncodePCM16(pcm, m.sampleRate, m.channels)
	if err != nil {
		return Audio{}, NewProviderError(KindTransport, err)
	}
	return Audio{Data: data, Duration: seconds}, nil
}
