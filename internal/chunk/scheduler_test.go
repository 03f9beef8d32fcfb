package chunk

import (
	"testing"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
)

func collect(cfg Config, samples []float32, r Range) []Chunk {
	var out []Chunk
	for ch := range cfg.Schedule(samples, r) {
		out = append(out, ch)
	}
	return out
}

func TestOverlapScheduleTwelveSeconds(t *testing.T) {
	cfg, err := Overlap(16000, 5, 0.5)
	if err != nil {
		t.Fatalf("overlap config: %v", err)
	}
	if cfg.HopSamples != 40000 {
		t.Fatalf("expected hop 40000, got %d", cfg.HopSamples)
	}

	samples := make([]float32, 12*16000)
	chunks := collect(cfg, samples, Range{0, len(samples)})
	wantStarts := []int{0, 40000, 80000, 120000}
	if len(chunks) != len(wantStarts) {
		t.Fatalf("expected %d chunks, got %d", len(wantStarts), len(chunks))
	}
	for i, ch := range chunks {
		if ch.Start != wantStarts[i] {
			t.Fatalf("chunk %d starts at %d, want %d", i, ch.Start, wantStarts[i])
		}
	}
	for _, ch := range chunks[:3] {
		if len(ch.Samples) != 80000 {
			t.Fatalf("expected full chunk, got %d samples", len(ch.Samples))
		}
	}
	last := chunks[len(chunks)-1]
	if len(last.Samples) != len(samples)-120000 || last.End != len(samples) {
		t.Fatalf("expected truncated last chunk, got %d samples ending at %d", len(last.Samples), last.End)
	}
	if last.StartS != 7.5 || last.EndS != 12 {
		t.Fatalf("unexpected last chunk times %v-%v", last.StartS, last.EndS)
	}
}

func TestStrideScheduleWithinRange(t *testing.T) {
	cfg, err := Stride(16000, 30, 5)
	if err != nil {
		t.Fatalf("stride config: %v", err)
	}
	samples := make([]float32, 20*16000)
	chunks := collect(cfg, samples, Range{2 * 16000, 8 * 16000})
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	if chunks[0].StartS != 2 || chunks[0].EndS != 8 {
		t.Fatalf("unexpected chunk bounds %v-%v", chunks[0].StartS, chunks[0].EndS)
	}
}

func TestScheduleDropsShortChunk(t *testing.T) {
	cfg, err := Stride(16000, 30, 5)
	if err != nil {
		t.Fatalf("stride config: %v", err)
	}
	samples := make([]float32, 16000)
	if got := collect(cfg, samples, Range{0, 7000}); len(got) != 0 {
		t.Fatalf("expected sub-0.5s range to be dropped, got %d chunks", len(got))
	}
}

func TestScheduleStopsEarlyWhenConsumerBreaks(t *testing.T) {
	cfg, _ := Overlap(16000, 1, 0)
	samples := make([]float32, 10*16000)
	n := 0
	for range cfg.Schedule(samples, Range{0, len(samples)}) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("expected to stop after 2 chunks, got %d", n)
	}
}

func TestConfigRejectsDegenerateValues(t *testing.T) {
	cases := []struct {
		name string
		fn   func() error
	}{
		{"zero chunk", func() error { _, err := Overlap(16000, 0, 0.5); return err }},
		{"negative chunk", func() error { _, err := Stride(16000, -1, 1); return err }},
		{"overlap too high", func() error { _, err := Overlap(16000, 5, 0.9); return err }},
		{"negative overlap", func() error { _, err := Overlap(16000, 5, -0.1); return err }},
		{"zero stride", func() error { _, err := Stride(16000, 5, 0); return err }},
		{"zero rate", func() error { _, err := Overlap(0, 5, 0.5); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.fn(); !asrerr.Is(err, asrerr.KindConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestWindowRetainsOverlap(t *testing.T) {
	cfg, err := Overlap(10, 1, 0.5)
	if err != nil {
		t.Fatalf("overlap config: %v", err)
	}
	w := NewWindow(cfg)
	in := make([]float32, 25)
	for i := range in {
		in[i] = float32(i)
	}
	w.Append(in)

	var starts []int
	for {
		ch, ok := w.Next()
		if !ok {
			break
		}
		if ch.Samples[0] != float32(ch.Start) {
			t.Fatalf("chunk at %d begins with sample %v", ch.Start, ch.Samples[0])
		}
		starts = append(starts, ch.Start)
	}
	if len(starts) != 4 || starts[3] != 15 {
		t.Fatalf("unexpected chunk starts %v", starts)
	}
	if w.Pending() != 5 {
		t.Fatalf("expected 5 pending samples, got %d", w.Pending())
	}
	if w.Discard() != 5 || w.Pending() != 0 {
		t.Fatalf("expected discard to empty the window")
	}
}
