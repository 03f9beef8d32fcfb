package decode

import (
	"context"
	"strings"
)

// Strategy turns a label distribution into raw label text. Restoration is
// applied by the Decoder so every strategy yields the same text shape.
type Strategy interface {
	Name() string
	Decode(ctx context.Context, out Output) (string, error)
}

type greedy struct {
	labels Labels
}

// Greedy picks the most likely label per step, collapses repeats and drops
// blanks and special tokens.
func Greedy(labels Labels) Strategy {
	return &greedy{labels: labels}
}

func (g *greedy) Name() string { return "greedy" }

func (g *greedy) Decode(_ context.Context, out Output) (string, error) {
	var b strings.Builder
	prev := -1
	for _, id := range out.Argmax() {
		if id == prev {
			continue
		}
		prev = id
		if id == BlankID || id >= len(g.labels) {
			continue
		}
		piece := g.labels[id]
		if special(piece) {
			continue
		}
		b.WriteString(piece)
	}
	return b.String(), nil
}

type languageModel struct {
	lm LMDecoder
}

// LanguageModel delegates to an external n-gram beam search decoder.
func LanguageModel(lm LMDecoder) Strategy {
	return &languageModel{lm: lm}
}

func (l *languageModel) Name() string { return "lm" }

func (l *languageModel) Decode(ctx context.Context, out Output) (string, error) {
	return l.lm.Decode(ctx, out)
}
