package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/loqalabs/loqa-transcribe/internal/config"
	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenDisabled(t *testing.T) {
	st, err := Open(context.Background(), config.StoreConfig{}, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if st.Enabled() {
		t.Fatal("expected disabled store")
	}
	if err := st.SaveTranscript(context.Background(), Session{ID: "x"}, []transcript.Segment{{Text: "hi"}}); err != nil {
		t.Fatalf("disabled store must accept writes: %v", err)
	}
}

func TestSaveAndQuery(t *testing.T) {
	cfg := config.StoreConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "transcripts.db")}
	st, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	segs := []transcript.Segment{
		{Start: 0, End: 5, Text: "the patient has a fever"},
		{Start: 5, End: 6, Text: ""},
		{Start: 5, End: 9, Text: "and a cough"},
	}
	if err := st.SaveTranscript(context.Background(), Session{ID: "run-1", Source: "visit.wav", Mode: "batch"}, segs); err != nil {
		t.Fatalf("save transcript: %v", err)
	}
	if err := st.AppendSegments(context.Background(), "run-1", transcript.Segment{Start: 9, End: 10, Text: "no rash"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := st.Segments(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("segments: %v", err)
	}
	if len(got) != 3 || got[1] != segs[2] || got[2].Text != "no rash" {
		t.Fatalf("unexpected segments %+v", got)
	}
	sessions, err := st.Sessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Source != "visit.wav" || sessions[0].Mode != "batch" {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
}

func TestPruneByDaysAndSessions(t *testing.T) {
	cfg := config.StoreConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "transcripts.db"), RetentionDays: 1, MaxSessions: 1}
	st, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	st.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := st.SaveTranscript(context.Background(), Session{ID: "old", Mode: "live"}, []transcript.Segment{{End: 1, Text: "old"}}); err != nil {
		t.Fatalf("save old: %v", err)
	}
	st.clock = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := st.SaveSession(context.Background(), Session{ID: "new", Mode: "live"}); err != nil {
		t.Fatalf("save new: %v", err)
	}
	if err := st.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	segs, err := st.Segments(context.Background(), "old")
	if err != nil {
		t.Fatalf("segments: %v", err)
	}
	if len(segs) != 0 {
		t.Fatalf("expected old session segments pruned")
	}
	sessions, _ := st.Sessions(context.Background(), 10)
	if len(sessions) != 1 || sessions[0].ID != "new" {
		t.Fatalf("unexpected sessions after prune %+v", sessions)
	}
}
