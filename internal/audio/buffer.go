// Package audio produces canonical mono float32 sample buffers from WAV
// files, external media and raw PCM16 streams.
package audio

import "encoding/binary"

// SampleRate is the canonical pipeline rate.
const SampleRate = 16000

// Buffer holds mono samples in [-1.0, 1.0] at a fixed sample rate.
type Buffer struct {
	SampleRate int
	Samples    []float32
}

// Duration returns the buffer length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// PCM16ToFloat32 converts little-endian signed 16-bit PCM to floats. An odd
// trailing byte is dropped.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

// Float32ToPCM16 converts samples back to little-endian 16-bit PCM, clipping
// out-of-range values.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(floatToInt16(s)))
	}
	return out
}

func floatToInt16(s float32) int16 {
	v := s * 32768.0
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
