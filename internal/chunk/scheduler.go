// Package chunk slices sample ranges into overlapping fixed-length windows
// for the decoder.
package chunk

import (
	"iter"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
)

// MinChunkSeconds is the shortest audio the acoustic model can decode with
// enough context.
const MinChunkSeconds = 0.5

// Config is the resolved chunk geometry in samples.
type Config struct {
	SampleRate   int
	ChunkSamples int
	HopSamples   int
	MinSamples   int
}

// Stride builds a Config from an explicit chunk length and stride, both in
// seconds. Batch mode uses this form.
func Stride(sampleRate int, chunkS, strideS float64) (Config, error) {
	if err := validate(sampleRate, chunkS); err != nil {
		return Config{}, err
	}
	if strideS <= 0 {
		return Config{}, asrerr.Configf("chunk", "stride_length_s must be > 0, got %v", strideS)
	}
	chunk := int(float64(sampleRate) * chunkS)
	return Config{
		SampleRate:   sampleRate,
		ChunkSamples: chunk,
		HopSamples:   max(1, int(float64(sampleRate)*strideS)),
		MinSamples:   int(float64(sampleRate) * MinChunkSeconds),
	}, nil
}

// Overlap builds a Config from a chunk length and the fraction of each chunk
// shared with the next one. Streaming mode uses this form.
func Overlap(sampleRate int, chunkS, overlap float64) (Config, error) {
	if err := validate(sampleRate, chunkS); err != nil {
		return Config{}, err
	}
	if overlap < 0 || overlap >= 0.9 {
		return Config{}, asrerr.Configf("chunk", "overlap must be in [0, 0.9), got %v", overlap)
	}
	chunk := int(float64(sampleRate) * chunkS)
	return Config{
		SampleRate:   sampleRate,
		ChunkSamples: chunk,
		HopSamples:   max(1, int(float64(chunk)*(1.0-overlap))),
		MinSamples:   int(float64(sampleRate) * MinChunkSeconds),
	}, nil
}

func validate(sampleRate int, chunkS float64) error {
	if sampleRate <= 0 {
		return asrerr.Configf("chunk", "sample rate must be > 0, got %d", sampleRate)
	}
	if chunkS <= 0 {
		return asrerr.Configf("chunk", "chunk_length_s must be > 0, got %v", chunkS)
	}
	if int(float64(sampleRate)*chunkS) <= 0 {
		return asrerr.Configf("chunk", "chunk_length_s %v is shorter than one sample", chunkS)
	}
	return nil
}

// ChunkSeconds returns the nominal chunk duration.
func (c Config) ChunkSeconds() float64 {
	return float64(c.ChunkSamples) / float64(c.SampleRate)
}

// Chunk is one decoder input. Start and End are absolute sample indices in
// the source buffer.
type Chunk struct {
	Samples []float32
	Start   int
	End     int
	StartS  float64
	EndS    float64
}

// Range is a half-open sample range to schedule.
type Range struct {
	Start int
	End   int
}

// Schedule lazily yields chunks covering r left to right. The last chunk of
// the range may be shorter than ChunkSamples; chunks shorter than
// MinSamples are dropped. Scheduling stops once a chunk reaches the end of
// the range since any later chunk would lie entirely inside it.
func (c Config) Schedule(samples []float32, r Range) iter.Seq[Chunk] {
	r.Start = max(0, r.Start)
	r.End = min(len(samples), r.End)
	return func(yield func(Chunk) bool) {
		for pos := r.Start; pos < r.End; pos += c.HopSamples {
			end := min(pos+c.ChunkSamples, r.End)
			if end-pos < c.MinSamples {
				return
			}
			ch := Chunk{
				Samples: samples[pos:end],
				Start:   pos,
				End:     end,
				StartS:  float64(pos) / float64(c.SampleRate),
				EndS:    float64(end) / float64(c.SampleRate),
			}
			if !yield(ch) || end == r.End {
				return
			}
		}
	}
}
