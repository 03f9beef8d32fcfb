package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatIEEEFloat = 3

// ReadWAV decodes a WAV file into a mono float buffer. Multi-channel audio
// keeps the first channel. When targetRate is positive and differs from the
// file's rate the samples are resampled.
func ReadWAV(path string, targetRate int) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f, targetRate)
}

// DecodeWAV is ReadWAV over an already opened stream.
func DecodeWAV(r io.ReadSeeker, targetRate int) (Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Buffer{}, errors.New("invalid wav file")
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("decode wav: %w", err)
	}

	channels := int(dec.NumChans)
	if channels <= 0 {
		channels = 1
	}
	rate := int(dec.SampleRate)
	samples := normalize(pcm, int(dec.BitDepth), channels, dec.WavAudioFormat == wavFormatIEEEFloat)

	if targetRate > 0 && rate != targetRate {
		samples, err = Resample(samples, rate, targetRate)
		if err != nil {
			return Buffer{}, err
		}
		rate = targetRate
	}
	return Buffer{SampleRate: rate, Samples: samples}, nil
}

func normalize(pcm *goaudio.IntBuffer, bitDepth, channels int, ieeeFloat bool) []float32 {
	frames := len(pcm.Data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		v := pcm.Data[i*channels]
		var s float32
		switch {
		case ieeeFloat && bitDepth == 32:
			s = math.Float32frombits(uint32(int32(v)))
		case bitDepth == 8:
			s = float32(v-128) / 128.0
		case bitDepth == 16:
			s = float32(v) / 32768.0
		case bitDepth == 24:
			s = float32(v) / 8388608.0
		case bitDepth == 32:
			s = float32(float64(v) / 2147483648.0)
		default:
			s = float32(v)
		}
		out[i] = clamp(s)
	}
	return out
}

// WriteWAV encodes samples as 16-bit mono PCM.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(floatToInt16(s))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// WriteWAVFile writes samples to a new WAV file at path.
func WriteWAVFile(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
