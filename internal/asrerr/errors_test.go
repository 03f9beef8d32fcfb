package asrerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesWrappedKind(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("transcribe file: %w", Extraction("ffmpeg", base))

	if !Is(err, KindExtraction) {
		t.Fatalf("expected extraction kind, got %v", err)
	}
	if Is(err, KindDecode) {
		t.Fatalf("did not expect decode kind")
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected chain to include base error")
	}
}

func TestNilErrorStaysNil(t *testing.T) {
	if err := IO("write", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	err := Configf("chunk", "chunk_length_s must be > 0, got %v", -1.0)
	want := "configuration error: chunk: chunk_length_s must be > 0, got -1"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
