// Package merge removes text duplicated by overlapping chunks.
package merge

import (
	"math"
	"strings"

	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

// Stitcher reconciles a raw segment with the previously merged one. It
// returns the adjusted segment and false when nothing is left of it.
type Stitcher interface {
	Stitch(prev, next transcript.Segment) (transcript.Segment, bool)
}

// WordFraction assumes an overlapping segment re-transcribed the tail of
// the previous one and drops the leading third of its words, at least one.
// The start is moved to the previous end. This is an approximation; uneven
// word lengths can under- or over-trim.
type WordFraction struct{}

func (WordFraction) Stitch(prev, next transcript.Segment) (transcript.Segment, bool) {
	if next.Start >= prev.End {
		return next, strings.TrimSpace(next.Text) != ""
	}
	words := strings.Fields(next.Text)
	trim := max(1, int(math.Round(float64(len(words))/3)))
	if trim >= len(words) {
		return transcript.Segment{}, false
	}
	next.Text = strings.Join(words[trim:], " ")
	next.Start = prev.End
	next.End = max(next.End, next.Start)
	return next, true
}

// Merger applies a Stitcher incrementally. Each segment is stitched against
// the last one kept.
type Merger struct {
	stitcher Stitcher
	merged   []transcript.Segment
}

func NewMerger(st Stitcher) *Merger {
	if st == nil {
		st = WordFraction{}
	}
	return &Merger{stitcher: st}
}

// Push merges one raw segment. It reports the merged segment, or false when
// the segment was dropped.
func (m *Merger) Push(seg transcript.Segment) (transcript.Segment, bool) {
	if strings.TrimSpace(seg.Text) == "" {
		return transcript.Segment{}, false
	}
	if n := len(m.merged); n > 0 {
		var ok bool
		seg, ok = m.stitcher.Stitch(m.merged[n-1], seg)
		if !ok {
			return transcript.Segment{}, false
		}
	}
	m.merged = append(m.merged, seg)
	return seg, true
}

// Segments returns a copy of everything merged so far.
func (m *Merger) Segments() []transcript.Segment {
	return append([]transcript.Segment(nil), m.merged...)
}

// Merge runs a full ordered sequence through st.
func Merge(st Stitcher, segments []transcript.Segment) []transcript.Segment {
	m := NewMerger(st)
	for _, s := range segments {
		m.Push(s)
	}
	return m.Segments()
}
