package decode

import (
	"context"
	"fmt"
	"math"
)

const (
	mockStepsPerSecond = 50
	mockSilenceRMS     = 0.005
)

// DefaultMockLabels is a small vocabulary usable with the mock model.
func DefaultMockLabels() Labels {
	return Labels{
		"<blank>", "</s>", "<unk>",
		"▁the", "▁patient", "▁has", "▁a", "▁fever", "▁today", "▁and", "▁cough",
		"{period}", "{comma}",
	}
}

// DefaultMockWords is the utterance the mock model recognizes in any
// chunk carrying signal.
var DefaultMockWords = []string{"the", "patient", "has", "a", "fever", "{period}"}

// MockModel emits a fixed utterance as one-hot label rows, separated by
// blanks, for any chunk whose energy is above a small floor. Quiet chunks
// decode to blanks only.
type MockModel struct {
	width int
	ids   []int
}

// NewMockModel resolves words to label ids. A word matches "▁word" or the
// bare piece.
func NewMockModel(labels Labels, words []string) (*MockModel, error) {
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	ids := make([]int, 0, len(words))
	for _, w := range words {
		id, ok := index[wordBoundary+w]
		if !ok {
			id, ok = index[w]
		}
		if !ok || id == BlankID {
			return nil, fmt.Errorf("mock word %q has no label", w)
		}
		ids = append(ids, id)
	}
	return &MockModel{width: len(labels), ids: ids}, nil
}

func (m *MockModel) VocabSize() int { return m.width }

func (m *MockModel) Infer(ctx context.Context, samples []float32, sampleRate int) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	steps := max(1, len(samples)*mockStepsPerSecond/sampleRate)
	out := Output{Steps: steps, Width: m.width, Probs: make([]float32, steps*m.width)}
	for t := 0; t < steps; t++ {
		out.Probs[t*m.width+BlankID] = 1
	}
	if energy(samples) < mockSilenceRMS {
		return out, nil
	}
	for i, id := range m.ids {
		t := 2*i + 1
		if t >= steps {
			break
		}
		row := out.Row(t)
		row[BlankID] = 0
		row[id] = 1
	}
	return out, nil
}

func energy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// MockLM stands in for the external beam search decoder with a greedy pass
// over the LM-rewritten labels, so its output carries '#' word boundaries
// like the real decoder's.
type MockLM struct {
	strategy Strategy
	count    int
}

func NewMockLM(labels Labels) *MockLM {
	return &MockLM{strategy: Greedy(labels.ForLM()), count: len(labels)}
}

func (m *MockLM) LabelCount() int { return m.count }

func (m *MockLM) Decode(ctx context.Context, out Output) (string, error) {
	return m.strategy.Decode(ctx, out)
}
