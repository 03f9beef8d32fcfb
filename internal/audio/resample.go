package audio

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts mono samples from one rate to another.
func Resample(samples []float32, fromRate, toRate int) ([]float32, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", fromRate, toRate)
	}
	if fromRate == toRate || len(samples) == 0 {
		return samples, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(fromRate),
		OutputRate: float64(toRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s)
	}
	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	// The filter delay holds back the end of the signal until flushed.
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush: %w", err)
	}
	output = append(output, tail...)
	if want := int(math.Round(float64(len(samples)) * float64(toRate) / float64(fromRate))); len(output) > want {
		output = output[:want]
	}

	out := make([]float32, len(output))
	for i, s := range output {
		out[i] = clamp(float32(s))
	}
	return out, nil
}
