// Package tts synthesizes transcript text to speech through a pluggable
// backend and writes the result as WAV.
package tts

import (
	"context"
	"fmt"

	"github.com/loqalabs/loqa-transcribe/internal/config"
)

// SynthRequest contains parameters to synthesize speech.
type SynthRequest struct {
	Text  string
	Voice string
}

// SynthChunk carries mono 16-bit little-endian PCM.
type SynthChunk struct {
	Sequence   int
	SampleRate int
	PCM        []byte
	Final      bool
}

// Synthesizer is the contract for producing audio. The chunk channel is
// closed when synthesis ends; at most one error is sent.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error)
}

// New selects the backend named by cfg.Mode.
func New(cfg config.TTSConfig) (Synthesizer, error) {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 22050
	}
	switch cfg.Mode {
	case "", "mock":
		return NewMockSynth(rate), nil
	case "exec":
		return NewExecSynth(cfg.Command, rate)
	default:
		return nil, fmt.Errorf("unknown tts mode %q", cfg.Mode)
	}
}
