package transcript

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
)

var sample = []Segment{
	{Start: 0.5, End: 3.25, Text: "the patient has a fever."},
	{Start: 3.25, End: 4, Text: ""},
	{Start: 3661.001, End: 3662.1234, Text: "and a cough"},
}

func render(t *testing.T, f Format, segs []Segment) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, f, segs); err != nil {
		t.Fatalf("write %s: %v", f, err)
	}
	return buf.String()
}

func TestTimestamps(t *testing.T) {
	if got := HMS(3725.9); got != "01:02:05" {
		t.Fatalf("HMS = %q", got)
	}
	if got := VTTTimestamp(3661.001); got != "01:01:01.001" {
		t.Fatalf("VTT = %q", got)
	}
	if got := SRTTimestamp(59.9996); got != "00:01:00,000" {
		t.Fatalf("SRT = %q", got)
	}
}

func TestWriteTXT(t *testing.T) {
	want := "[00:00:00] the patient has a fever.\n[01:01:01] and a cough\n"
	if got := render(t, FormatTXT, sample); got != want {
		t.Fatalf("unexpected txt:\n%q", got)
	}
}

func TestWriteVTT(t *testing.T) {
	want := "WEBVTT\n\n" +
		"00:00:00.500 --> 00:00:03.250\nthe patient has a fever.\n\n" +
		"01:01:01.001 --> 01:01:02.123\nand a cough\n"
	if got := render(t, FormatVTT, sample); got != want {
		t.Fatalf("unexpected vtt:\n%q", got)
	}
}

func TestWriteSRTNumbersOnlyEmittedCues(t *testing.T) {
	got := render(t, FormatSRT, sample)
	want := "1\n00:00:00,500 --> 00:00:03,250\nthe patient has a fever.\n\n" +
		"2\n01:01:01,001 --> 01:01:02,123\nand a cough\n"
	if got != want {
		t.Fatalf("unexpected srt:\n%q", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	segs := []Segment{
		{Start: 0.1, End: 2.7000000000000002, Text: "a \"quoted\" <b>"},
		{Start: 1e-7, End: 30, Text: "second"},
	}
	out := render(t, FormatJSON, segs)
	if !strings.HasPrefix(out, "{\n  \"segments\": [\n    {\n      \"start\"") {
		t.Fatalf("unexpected json layout:\n%s", out)
	}
	got, err := ReadJSON(strings.NewReader(out))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if len(got) != len(segs) {
		t.Fatalf("expected %d segments, got %d", len(segs), len(got))
	}
	for i := range segs {
		if got[i] != segs[i] {
			t.Fatalf("segment %d = %+v, want %+v", i, got[i], segs[i])
		}
	}
}

func TestJSONSkipsEmptyText(t *testing.T) {
	got, err := ReadJSON(strings.NewReader(render(t, FormatJSON, sample)))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected empty segment skipped, got %d segments", len(got))
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" SRT "); err != nil || f != FormatSRT {
		t.Fatalf("ParseFormat = %q, %v", f, err)
	}
	if _, err := ParseFormat("docx"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestOutputBase(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join("recordings", "visit.mp4")
	if got := OutputBase(input, ""); got != filepath.Join("recordings", "visit_transcript") {
		t.Fatalf("default base = %q", got)
	}
	if got := OutputBase(input, dir); got != filepath.Join(dir, "visit_transcript") {
		t.Fatalf("dir base = %q", got)
	}
	if got := OutputBase(input, filepath.Join(dir, "notes.txt")); got != filepath.Join(dir, "notes") {
		t.Fatalf("file base = %q", got)
	}
}

func TestWriteAllAndUnwritablePath(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out", "visit")
	paths, err := WriteAll(base, []Format{FormatTXT, FormatSRT}, sample)
	if err != nil {
		t.Fatalf("write all: %v", err)
	}
	if len(paths) != 2 || paths[1] != base+".srt" {
		t.Fatalf("unexpected paths %v", paths)
	}
	if _, err := os.Stat(base + ".txt"); err != nil {
		t.Fatalf("txt not written: %v", err)
	}

	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	err = WriteFile(filepath.Join(blocker, "x.txt"), FormatTXT, sample)
	if !asrerr.Is(err, asrerr.KindIO) {
		t.Fatalf("expected IO error, got %v", err)
	}
}

func TestText(t *testing.T) {
	if got := Text(sample); got != "the patient has a fever. and a cough" {
		t.Fatalf("Text = %q", got)
	}
}
