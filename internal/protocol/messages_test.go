package protocol

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStatusEventFieldOrder(t *testing.T) {
	ev := Status(time.Unix(1700000000, 500000000), StatusReady, map[string]any{
		"use_lm":      false,
		"chunk_s":     5.0,
		"sample_rate": 16000,
		"type":        "ignored",
	})
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"status","ts":1700000000.5,"message":"ready","chunk_s":5,"sample_rate":16000,"use_lm":false}`
	if string(data) != want {
		t.Fatalf("unexpected encoding:\n%s\nwant\n%s", data, want)
	}
}

func TestASREventEncoding(t *testing.T) {
	data, err := json.Marshal(ASR(time.Unix(10, 0), "the patient", 5, 0.2))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"asr","ts":10,"text":"the patient","chunk_s":5,"rtf":0.2}`
	if string(data) != want {
		t.Fatalf("unexpected encoding %s", data)
	}

	var back StreamEvent
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Type != EventASR || back.Text != "the patient" || back.RTF != 0.2 || back.ChunkS != 5 {
		t.Fatalf("unexpected decoded event %+v", back)
	}
}

func TestErrorEventKeepsExtras(t *testing.T) {
	data, _ := json.Marshal(Error(time.Unix(1, 0), ErrTranscribeFailed, map[string]any{"detail": "boom"}))
	var back StreamEvent
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Message != ErrTranscribeFailed || back.Extra["detail"] != "boom" {
		t.Fatalf("unexpected decoded event %+v", back)
	}
}

func TestSubjects(t *testing.T) {
	if got := EventSubject("transcribe", "abc"); got != "transcribe.events.abc" {
		t.Fatalf("event subject %q", got)
	}
	if got := TranscriptSubject("transcribe"); got != "transcribe.transcripts" {
		t.Fatalf("transcript subject %q", got)
	}
}
