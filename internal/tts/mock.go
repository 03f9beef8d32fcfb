package tts

import (
	"context"
	"math"
	"strings"

	"github.com/loqalabs/loqa-transcribe/internal/audio"
)

// mockWordSeconds is the tone length emitted per word.
const mockWordSeconds = 0.1

type mockSynth struct {
	sampleRate int
}

// NewMockSynth emits a short tone per word, one chunk per word.
func NewMockSynth(sampleRate int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate}
}

func (m *mockSynth) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	words := strings.Fields(req.Text)
	chunks := make(chan SynthChunk, len(words))
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		n := int(mockWordSeconds * float64(m.sampleRate))
		for i := range words {
			if err := ctx.Err(); err != nil {
				errs <- err
				return
			}
			tone := make([]float32, n)
			for j := range tone {
				tone[j] = float32(0.2 * math.Sin(2*math.Pi*440*float64(j)/float64(m.sampleRate)))
			}
			select {
			case chunks <- SynthChunk{Sequence: i, SampleRate: m.sampleRate, PCM: audio.Float32ToPCM16(tone), Final: i == len(words)-1}:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()
	return chunks, errs
}
