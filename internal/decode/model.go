// Package decode maps audio chunks to text through an acoustic model and a
// decoding strategy chosen once at construction.
package decode

import (
	"context"
	"fmt"
)

// Output is the per-timestep label distribution of one chunk, stored row
// major as Steps rows of Width values.
type Output struct {
	Steps int
	Width int
	Probs []float32
}

// NewOutput packs rows of equal width into an Output.
func NewOutput(rows [][]float32) (Output, error) {
	if len(rows) == 0 {
		return Output{}, nil
	}
	width := len(rows[0])
	probs := make([]float32, 0, len(rows)*width)
	for t, row := range rows {
		if len(row) != width {
			return Output{}, fmt.Errorf("row %d has width %d, want %d", t, len(row), width)
		}
		probs = append(probs, row...)
	}
	return Output{Steps: len(rows), Width: width, Probs: probs}, nil
}

// Row returns the distribution at step t.
func (o Output) Row(t int) []float32 {
	return o.Probs[t*o.Width : (t+1)*o.Width]
}

// Rows unpacks the output into one slice per step.
func (o Output) Rows() [][]float32 {
	rows := make([][]float32, o.Steps)
	for t := range rows {
		rows[t] = o.Row(t)
	}
	return rows
}

// Argmax returns the highest scoring label per step.
func (o Output) Argmax() []int {
	ids := make([]int, o.Steps)
	for t := 0; t < o.Steps; t++ {
		row := o.Row(t)
		best := 0
		for i := 1; i < len(row); i++ {
			if row[i] > row[best] {
				best = i
			}
		}
		ids[t] = best
	}
	return ids
}

// AcousticModel is the external collaborator producing label distributions.
// Implementations are only used by one goroutine at a time.
type AcousticModel interface {
	// VocabSize is the width of every Output row.
	VocabSize() int
	Infer(ctx context.Context, samples []float32, sampleRate int) (Output, error)
}

// LMDecoder is an external beam-search decoder constrained by an n-gram
// language model. It returns raw label text that still needs restoration.
type LMDecoder interface {
	// LabelCount is the label vocabulary size the decoder was built with.
	LabelCount() int
	Decode(ctx context.Context, out Output) (string, error)
}
