package audio

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
)

func TestPCM16ToFloat32DropsOddByte(t *testing.T) {
	pcm := []byte{0x00, 0x80, 0xff, 0x7f, 0x01}
	got := PCM16ToFloat32(pcm)
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if got[0] != -1.0 {
		t.Fatalf("expected -1.0, got %v", got[0])
	}
	if math.Abs(float64(got[1])-32767.0/32768.0) > 1e-9 {
		t.Fatalf("unexpected max sample %v", got[1])
	}
}

func TestWAVRoundTrip(t *testing.T) {
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWAVFile(path, samples, SampleRate); err != nil {
		t.Fatalf("write wav: %v", err)
	}

	buf, err := ReadWAV(path, 0)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if buf.SampleRate != SampleRate {
		t.Fatalf("expected %d Hz, got %d", SampleRate, buf.SampleRate)
	}
	if len(buf.Samples) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(buf.Samples))
	}
	for i := range samples {
		if math.Abs(float64(buf.Samples[i]-samples[i])) > 1.0/16384 {
			t.Fatalf("sample %d differs: %v vs %v", i, buf.Samples[i], samples[i])
		}
	}
	if math.Abs(buf.Duration()-0.1) > 1e-9 {
		t.Fatalf("unexpected duration %v", buf.Duration())
	}
}

func TestReadWAVInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wav"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadWAV(path, 0); err == nil {
		t.Fatalf("expected error for invalid wav")
	}
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out, err := Resample(in, SampleRate, SampleRate)
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	if len(out) != len(in) || out[2] != in[2] {
		t.Fatalf("expected identity, got %v", out)
	}
	if _, err := Resample(in, 0, SampleRate); err == nil {
		t.Fatalf("expected error for zero rate")
	}
}

func TestResampleKeepsSignalEnd(t *testing.T) {
	const from = 44100
	in := make([]float32, from)
	for i := range in {
		in[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/from))
	}
	out, err := Resample(in, from, SampleRate)
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	if len(out) < SampleRate-100 || len(out) > SampleRate {
		t.Fatalf("expected about %d samples, got %d", SampleRate, len(out))
	}
	var sum float64
	tail := out[15000:15800]
	for _, s := range tail {
		sum += float64(s) * float64(s)
	}
	if rms := math.Sqrt(sum / float64(len(tail))); rms < 0.2 {
		t.Fatalf("signal end lost, tail rms %.3f", rms)
	}
}

func TestExtractorMissingInput(t *testing.T) {
	ex, err := NewExtractor("ffmpeg -hide_banner", t.TempDir())
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	_, err = ex.Load(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	if !asrerr.Is(err, asrerr.KindExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestExtractorFailingCommand(t *testing.T) {
	ex, err := NewExtractor("false", t.TempDir())
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	input := filepath.Join(t.TempDir(), "in.mp4")
	if err := os.WriteFile(input, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err = ex.Load(context.Background(), input)
	if !asrerr.Is(err, asrerr.KindExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestNewExtractorRejectsBadQuoting(t *testing.T) {
	if _, err := NewExtractor(`ffmpeg "unterminated`, ""); !asrerr.Is(err, asrerr.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
