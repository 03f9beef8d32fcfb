package transcript

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// NormalizeWords lowercases text, drops punctuation and splits on
// whitespace.
func NormalizeWords(text string) []string {
	text = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, text)
	return strings.Fields(text)
}

// EditStats counts the word edits turning a reference into a hypothesis.
type EditStats struct {
	ReferenceWords  int
	HypothesisWords int
	Substitutions   int
	Insertions      int
	Deletions       int
}

// WER is the word error rate against the reference. An empty reference
// yields 0.
func (s EditStats) WER() float64 {
	if s.ReferenceWords == 0 {
		return 0
	}
	return float64(s.Substitutions+s.Insertions+s.Deletions) / float64(s.ReferenceWords)
}

// Difference is one differing run of words. An empty side means the words
// are absent there.
type Difference struct {
	Left  string
	Right string
}

// CompareWords aligns normalized words of reference and hypothesis. A
// replaced run counts as max(left, right) substitutions.
func CompareWords(reference, hypothesis string) EditStats {
	ref := NormalizeWords(reference)
	hyp := NormalizeWords(hypothesis)
	stats := EditStats{ReferenceWords: len(ref), HypothesisWords: len(hyp)}
	for _, op := range difflib.NewMatcher(ref, hyp).GetOpCodes() {
		switch op.Tag {
		case 'r':
			stats.Substitutions += max(op.I2-op.I1, op.J2-op.J1)
		case 'i':
			stats.Insertions += op.J2 - op.J1
		case 'd':
			stats.Deletions += op.I2 - op.I1
		}
	}
	return stats
}

// Differences lists the differing word runs between left and right in
// order.
func Differences(left, right string) []Difference {
	a := NormalizeWords(left)
	b := NormalizeWords(right)
	var out []Difference
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		out = append(out, Difference{
			Left:  strings.Join(a[op.I1:op.I2], " "),
			Right: strings.Join(b[op.J1:op.J2], " "),
		})
	}
	return out
}
