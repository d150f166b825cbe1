// Package audio merges per-segment audio buffers into one playable file.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-audio/wav"
)

// WAVHeaderSize is the length of the canonical RIFF/WAVE header.
const WAVHeaderSize = 44

const (
	riffSizeOffset = 4
	dataSizeOffset = 40
)

var (
	ErrNoParts        = errors.New("no audio parts to merge")
	ErrInvalidHeader  = errors.New("invalid wav header")
	ErrFormatMismatch = errors.New("wav parts do not share one format")
	ErrPayloadTooBig  = errors.New("merged wav payload exceeds 4GiB")
)

// Merged is the assembler output. Fallback is set when a header-aware merge
// was not possible and Audio holds only the first part.
type Merged struct {
	Audio    []byte
	Fallback error
}

// Degraded reports whether the merge fell back to the first part.
func (m Merged) Degraded() bool { return m.Fallback != nil }

// Merge joins ordered audio parts. WAV parts are spliced under a single
// rewritten header; every other format is concatenated byte for byte, which
// is only correct for frame-independent streams such as MP3.
func Merge(parts [][]byte, format string) Merged {
	switch len(parts) {
	case 0:
		return Merged{Fallback: ErrNoParts}
	case 1:
		return Merged{Audio: parts[0]}
	}
	if !IsWAV(format) {
		return Merged{Audio: bytes.Join(parts, nil)}
	}
	merged, err := MergeWAV(parts)
	if err != nil {
		return Merged{Audio: parts[0], Fallback: err}
	}
	return Merged{Audio: merged}
}

// IsWAV reports whether format selects the header-aware merge.
func IsWAV(format string) bool {
	return strings.EqualFold(strings.TrimSpace(format), "wav")
}

// MergeWAV splices canonical 44-byte-header WAV buffers: the first header is
// kept, every other header is dropped, and the RIFF and data sizes are
// rewritten for the combined payload.
func MergeWAV(parts [][]byte) ([]byte, error) {
	if len(parts) == 0 {
		return nil, ErrNoParts
	}
	var want Format
	total := 0
	for i, part := range parts {
		f, err := ReadFormat(part)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
		if i == 0 {
			want = f
		} else if f != want {
			return nil, fmt.Errorf("part %d: %w: %+v != %+v", i, ErrFormatMismatch, f, want)
		}
		total += len(part) - WAVHeaderSize
	}
	if total+36 > math.MaxUint32 {
		return nil, ErrPayloadTooBig
	}

	out := make([]byte, WAVHeaderSize, WAVHeaderSize+total)
	copy(out, parts[0][:WAVHeaderSize])
	for _, part := range parts {
		out = append(out, part[WAVHeaderSize:]...)
	}
	binary.LittleEndian.PutUint32(out[riffSizeOffset:], uint32(36+total))
	binary.LittleEndian.PutUint32(out[dataSizeOffset:], uint32(total))
	return out, nil
}

// Format is the subset of a WAV header that must match across merged parts.
type Format struct {
	AudioFormat uint16
	Channels    uint16
	SampleRate  uint32
	BitDepth    uint16
}

// ReadFormat validates the canonical header layout of buf and decodes its
// fmt chunk.
func ReadFormat(buf []byte) (Format, error) {
	if len(buf) < WAVHeaderSize {
		return Format{}, fmt.Errorf("%w: %d bytes", ErrInvalidHeader, len(buf))
	}
	if string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WAVE" {
		return Format{}, fmt.Errorf("%w: missing RIFF/WAVE markers", ErrInvalidHeader)
	}
	if string(buf[36:40]) != "data" {
		return Format{}, fmt.Errorf("%w: data chunk not at offset 36", ErrInvalidHeader)
	}
	dec := wav.NewDecoder(bytes.NewReader(buf))
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return Format{}, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return Format{}, fmt.Errorf("%w: empty fmt chunk", ErrInvalidHeader)
	}
	return Format{
		AudioFormat: dec.WavAudioFormat,
		Channels:    dec.NumChans,
		SampleRate:  dec.SampleRate,
		BitDepth:    dec.BitDepth,
	}, nil
}

// Duration returns the playback length in seconds of a canonical WAV buffer.
func Duration(buf []byte) (float64, error) {
	f, err := ReadFormat(buf)
	if err != nil {
		return 0, err
	}
	bytesPerSecond := float64(f.SampleRate) * float64(f.Channels) * float64(f.BitDepth) / 8
	if bytesPerSecond == 0 {
		return 0, fmt.Errorf("%w: zero byte rate", ErrInvalidHeader)
	}
	payload := binary.LittleEndian.Uint32(buf[dataSizeOffset:])
	if available := uint32(len(buf) - WAVHeaderSize); payload > available {
		payload = available
	}
	return float64(payload) / bytesPerSecond, nil
}
