package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
)

// BlankID is the CTC blank label index.
const BlankID = 0

const wordBoundary = "▁"

// Labels maps model output indices to token strings.
type Labels []string

// LabelsFromVocab inverts a token->id vocabulary into an index-ordered
// label list. The ids must be dense and unique.
func LabelsFromVocab(vocab map[string]int) (Labels, error) {
	if len(vocab) == 0 {
		return nil, errors.New("tokenizer vocab is empty")
	}
	maxID := -1
	for _, id := range vocab {
		if id < 0 {
			return nil, fmt.Errorf("invalid token id: %d", id)
		}
		maxID = max(maxID, id)
	}
	labels := make([]*string, maxID+1)
	for token, id := range vocab {
		if labels[id] != nil {
			return nil, fmt.Errorf("duplicate token id in vocab: %d", id)
		}
		tok := token
		labels[id] = &tok
	}
	var missing []int
	out := make(Labels, 0, len(labels))
	for i, l := range labels {
		if l == nil {
			if len(missing) < 10 {
				missing = append(missing, i)
			}
			continue
		}
		out = append(out, *l)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("tokenizer vocab missing ids: %v", missing)
	}
	return out, nil
}

// LoadLabels reads a JSON token->id vocabulary file.
func LoadLabels(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, asrerr.Configuration("read labels", err)
	}
	var vocab map[string]int
	if err := json.Unmarshal(data, &vocab); err != nil {
		return nil, asrerr.Configuration("parse labels", err)
	}
	labels, err := LabelsFromVocab(vocab)
	if err != nil {
		return nil, asrerr.Configuration("labels", err)
	}
	return labels, nil
}

// Truncate returns the first n labels. The model vocabulary may be smaller
// than the tokenizer's.
func (l Labels) Truncate(n int) Labels {
	if n >= len(l) {
		return l
	}
	return l[:n]
}

// ForLM rewrites labels for a word-level beam search decoder: the blank
// becomes empty and every regular piece is its own word, with in-piece word
// boundaries carried as '#'.
func (l Labels) ForLM() Labels {
	out := make(Labels, len(l))
	for i, piece := range l {
		switch {
		case i == BlankID:
			out[i] = ""
		case special(piece):
			out[i] = piece
		default:
			out[i] = wordBoundary + strings.ReplaceAll(piece, wordBoundary, "#")
		}
	}
	return out
}

func special(piece string) bool {
	return strings.HasPrefix(piece, "<") || strings.HasSuffix(piece, ">")
}
