package capture

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestReadPCMFramesAndOddByte(t *testing.T) {
	// 10 Hz: reads of 20 bytes. 45 bytes gives 10, 10 and 2 samples.
	data := bytes.Repeat([]byte{0x00, 0x40}, 22)
	data = append(data, 0x7f)

	var sizes []int
	err := ReadPCM(context.Background(), bytes.NewReader(data), 10, func(s []float32) error {
		sizes = append(sizes, len(s))
		if s[0] != 0.5 {
			t.Fatalf("expected 0.5, got %v", s[0])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read pcm: %v", err)
	}
	if len(sizes) != 3 || sizes[0] != 10 || sizes[2] != 2 {
		t.Fatalf("unexpected frame sizes %v", sizes)
	}
}

func TestReadPCMStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ReadPCM(ctx, bytes.NewReader(make([]byte, 100)), 10, func([]float32) error { return nil })
	if err == nil {
		t.Fatalf("expected context error")
	}
}

func TestCaptureCommand(t *testing.T) {
	ctx := context.Background()
	cmd, err := StartCommand(ctx, `printf '\000\100\000\100'`)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	var total int
	if err := ReadPCM(ctx, cmd.Stdout(), 16000, func(s []float32) error { total += len(s); return nil }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := cmd.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 samples, got %d", total)
	}
}

func TestReadControls(t *testing.T) {
	var got []Control
	for c := range ReadControls(strings.NewReader("p\nxs\nq\np\n")) {
		got = append(got, c)
	}
	want := []Control{ControlTogglePause, ControlSave, ControlQuit}
	if len(got) != len(want) {
		t.Fatalf("unexpected controls %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("control %d = %v, want %v", i, got[i], want[i])
		}
	}
}
