package tts

import (
	"context"
	"fmt"
	"strings"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
	"github.com/loqalabs/loqa-transcribe/internal/audio"
)

// Collect drains a synthesis into mono float32 samples and its rate.
func Collect(ctx context.Context, synth Synthesizer, req SynthRequest) ([]float32, int, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, 0, fmt.Errorf("nothing to speak")
	}
	chunks, errs := synth.Synthesize(ctx, req)
	var pcm []byte
	rate := 0
	for c := range chunks {
		if rate == 0 {
			rate = c.SampleRate
		} else if c.SampleRate != rate {
			return nil, 0, fmt.Errorf("sample rate changed mid-stream: %d -> %d", rate, c.SampleRate)
		}
		pcm = append(pcm, c.PCM...)
	}
	if err := <-errs; err != nil {
		return nil, 0, err
	}
	if rate == 0 {
		return nil, 0, fmt.Errorf("synthesizer produced no audio")
	}
	return audio.PCM16ToFloat32(pcm), rate, nil
}

// Speak synthesizes text and writes it to path as WAV.
func Speak(ctx context.Context, synth Synthesizer, req SynthRequest, path string) (float64, error) {
	samples, rate, err := Collect(ctx, synth, req)
	if err != nil {
		return 0, err
	}
	if err := audio.WriteWAVFile(path, samples, rate); err != nil {
		return 0, asrerr.IO("write "+path, err)
	}
	return float64(len(samples)) / float64(rate), nil
}
