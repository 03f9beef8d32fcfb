// Package vad partitions a sample buffer into speech intervals using
// short-frame RMS energy with silence hysteresis.
package vad

import (
	"math"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
)

// Config holds the detector thresholds.
type Config struct {
	FrameMS      int
	RMSThreshold float64
	MinSpeechMS  int
	MinSilenceMS int
	MaxSegmentS  float64
	MergeGapMS   int
}

// DefaultConfig returns the thresholds tuned for 16 kHz speech.
func DefaultConfig() Config {
	return Config{
		FrameMS:      30,
		RMSThreshold: 0.012,
		MinSpeechMS:  240,
		MinSilenceMS: 450,
		MaxSegmentS:  18.0,
		MergeGapMS:   150,
	}
}

// Interval is a half-open [Start, End) range of sample indices.
type Interval struct {
	Start int
	End   int
}

// Len returns the interval length in samples.
func (i Interval) Len() int { return i.End - i.Start }

// Detect returns sorted, non-overlapping speech intervals. An empty result
// means no speech was found; falling back to the whole buffer is up to the
// caller.
func Detect(samples []float32, sampleRate int, cfg Config) ([]Interval, error) {
	if sampleRate <= 0 {
		return nil, asrerr.Configf("vad", "sample rate must be positive, got %d", sampleRate)
	}
	frameLen := sampleRate * cfg.FrameMS / 1000
	if frameLen <= 0 {
		return nil, asrerr.Configf("vad", "frame_ms too small: %d", cfg.FrameMS)
	}

	speech := classify(samples, frameLen, cfg.RMSThreshold)
	if len(speech) == 0 {
		return nil, nil
	}

	minSpeech := max(1, cfg.MinSpeechMS/cfg.FrameMS)
	minSilence := max(1, cfg.MinSilenceMS/cfg.FrameMS)
	maxSegment := max(1, int(cfg.MaxSegmentS*1000/float64(cfg.FrameMS)))

	var out []span
	n := len(speech)
	i := 0
	for i < n {
		for i < n && !speech[i] {
			i++
		}
		if i >= n {
			break
		}

		start := i
		end := i
		silence := 0
		for end < n && end-start < maxSegment {
			if speech[end] {
				silence = 0
			} else {
				silence++
			}
			end++
			if silence >= minSilence {
				break
			}
		}
		next := end
		capped := end-start >= maxSegment && silence < minSilence
		// Close the interval at the start of any trailing silence run.
		end -= silence

		if end-start >= minSpeech {
			s := start * frameLen
			e := end * frameLen
			if end == n {
				e = len(samples)
			}
			out = append(out, span{Interval: Interval{Start: s, End: e}, capped: capped})
		}
		i = next
	}

	return mergeClose(out, sampleRate*cfg.MergeGapMS/1000), nil
}

func classify(samples []float32, frameLen int, threshold float64) []bool {
	n := len(samples) / frameLen
	speech := make([]bool, n)
	for f := 0; f < n; f++ {
		speech[f] = rms(samples[f*frameLen:(f+1)*frameLen]) >= threshold
	}
	return speech
}

func rms(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// span is an extracted interval plus whether it was cut by the length cap.
type span struct {
	Interval
	capped bool
}

// mergeClose joins consecutive intervals whose gap is at most maxGap
// samples. An interval cut by the length cap is never re-joined with its
// successor.
func mergeClose(spans []span, maxGap int) []Interval {
	if len(spans) == 0 {
		return nil
	}
	merged := []Interval{spans[0].Interval}
	capped := spans[0].capped
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if !capped && sp.Start-last.End <= maxGap {
			last.End = max(last.End, sp.End)
			capped = sp.capped
			continue
		}
		merged = append(merged, sp.Interval)
		capped = sp.capped
	}
	return merged
}
