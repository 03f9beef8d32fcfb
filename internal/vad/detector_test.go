package vad

import (
	"math"
	"testing"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
)

const rate = 16000

func tone(buf []float32, fromS, toS float64) {
	for i := int(fromS * rate); i < int(toS*rate) && i < len(buf); i++ {
		buf[i] = float32(0.1 * math.Sin(2*math.Pi*220*float64(i)/rate))
	}
}

func TestDetectSilenceIsEmpty(t *testing.T) {
	got, err := Detect(make([]float32, 5*rate), rate, DefaultConfig())
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no intervals, got %v", got)
	}
}

func TestDetectEmptyInput(t *testing.T) {
	got, err := Detect(nil, rate, DefaultConfig())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v, %v", got, err)
	}
}

func TestDetectContinuousSpeechIsOneInterval(t *testing.T) {
	buf := make([]float32, 5*rate)
	tone(buf, 0, 5)
	got, err := Detect(buf, rate, DefaultConfig())
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 1 || got[0].Start != 0 || got[0].End != len(buf) {
		t.Fatalf("expected one interval spanning input, got %v", got)
	}
}

func TestDetectTrimsShortSilentTail(t *testing.T) {
	buf := make([]float32, 5*rate)
	tone(buf, 0, 4.8)
	got, err := Detect(buf, rate, DefaultConfig())
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one interval, got %v", got)
	}
	if got[0].Start != 0 || got[0].End != int(4.8*rate) {
		t.Fatalf("expected [0,%d), got %v", int(4.8*rate), got[0])
	}
}

func TestDetectDropsShortNoise(t *testing.T) {
	buf := make([]float32, 3*rate)
	tone(buf, 1.0, 1.1)
	got, err := Detect(buf, rate, DefaultConfig())
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected noise spike to be discarded, got %v", got)
	}
}

func TestDetectTwoUtterances(t *testing.T) {
	buf := make([]float32, 20*rate)
	tone(buf, 2, 8)
	tone(buf, 12, 17)
	got, err := Detect(buf, rate, DefaultConfig())
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two intervals, got %v", got)
	}
	frame := rate * 30 / 1000
	want := []Interval{{2 * rate, 8 * rate}, {12 * rate, 17 * rate}}
	for i, iv := range got {
		if abs(iv.Start-want[i].Start) > frame || abs(iv.End-want[i].End) > frame {
			t.Fatalf("interval %d = %v, want about %v", i, iv, want[i])
		}
	}
}

func TestDetectCapsLongSpeech(t *testing.T) {
	buf := make([]float32, 20*rate)
	tone(buf, 0, 20)
	got, err := Detect(buf, rate, DefaultConfig())
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected capped speech to split in two, got %v", got)
	}
	if got[0].End != 18*rate || got[1].Start != 18*rate || got[1].End != len(buf) {
		t.Fatalf("unexpected split %v", got)
	}
}

func TestMergeCloseGapBoundary(t *testing.T) {
	maxGap := rate * 150 / 1000
	if maxGap != 2400 {
		t.Fatalf("expected 2400 sample gap, got %d", maxGap)
	}

	near := []span{{Interval: Interval{0, 8000}}, {Interval: Interval{8000 + 2400, 20000}}}
	if got := mergeClose(near, maxGap); len(got) != 1 || got[0] != (Interval{0, 20000}) {
		t.Fatalf("expected 150ms gap to merge, got %v", got)
	}

	far := []span{{Interval: Interval{0, 8000}}, {Interval: Interval{8000 + 151*rate/1000, 20000}}}
	if got := mergeClose(far, maxGap); len(got) != 2 {
		t.Fatalf("expected 151ms gap to stay split, got %v", got)
	}
}

func TestMergeCloseKeepsCappedIntervalSplit(t *testing.T) {
	spans := []span{
		{Interval: Interval{0, 18 * rate}, capped: true},
		{Interval: Interval{18*rate + 800, 20 * rate}},
	}
	got := mergeClose(spans, rate*150/1000)
	if len(got) != 2 || got[0].End != 18*rate {
		t.Fatalf("expected capped interval to stay split, got %v", got)
	}
}

func TestDetectRejectsBadFrame(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameMS = 0
	if _, err := Detect(make([]float32, rate), rate, cfg); !asrerr.Is(err, asrerr.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
