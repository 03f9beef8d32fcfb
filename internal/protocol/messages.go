package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

type EventType string

const (
	EventStatus EventType = "status"
	EventError  EventType = "error"
	EventASR    EventType = "asr"
)

// Status messages.
const (
	StatusLoadingASR = "loading_asr"
	StatusLoadingLM  = "loading_lm"
	StatusReady      = "ready"
	StatusIdle       = "idle"
	StatusPaused     = "paused"
	StatusResumed    = "resumed"
	StatusStopped    = "stopped"
)

// Error messages.
const (
	ErrModelLoadFailed  = "model_load_failed"
	ErrLMLoadFailed     = "lm_load_failed"
	ErrTranscribeFailed = "transcribe_failed"
	ErrInputFailed      = "input_failed"
)

// StreamEvent is one line of the live event protocol. Status and error
// events carry Message plus optional Extra fields; asr events carry Text,
// ChunkS and RTF.
type StreamEvent struct {
	Type    EventType
	TS      float64
	Message string
	Text    string
	ChunkS  float64
	RTF     float64
	Extra   map[string]any
}

// Epoch renders t as fractional Unix seconds.
func Epoch(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

func Status(now time.Time, message string, extra map[string]any) StreamEvent {
	return StreamEvent{Type: EventStatus, TS: Epoch(now), Message: message, Extra: extra}
}

func Error(now time.Time, message string, extra map[string]any) StreamEvent {
	return StreamEvent{Type: EventError, TS: Epoch(now), Message: message, Extra: extra}
}

func ASR(now time.Time, text string, chunkS, rtf float64) StreamEvent {
	return StreamEvent{Type: EventASR, TS: Epoch(now), Text: text, ChunkS: chunkS, RTF: rtf}
}

// MarshalJSON writes fields in a fixed order: type, ts, the variant fields,
// then extras sorted by key.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, value any) error {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(data)
		return nil
	}

	if err := field("type", e.Type); err != nil {
		return nil, err
	}
	if err := field("ts", e.TS); err != nil {
		return nil, err
	}
	reserved := map[string]bool{"type": true, "ts": true}
	switch e.Type {
	case EventASR:
		for _, f := range []struct {
			k string
			v any
		}{{"text", e.Text}, {"chunk_s", e.ChunkS}, {"rtf", e.RTF}} {
			if err := field(f.k, f.v); err != nil {
				return nil, err
			}
			reserved[f.k] = true
		}
	default:
		if err := field("message", e.Message); err != nil {
			return nil, err
		}
		reserved["message"] = true
	}

	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := field(k, e.Extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *StreamEvent) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = StreamEvent{}
	for k, v := range raw {
		switch k {
		case "type":
			s, _ := v.(string)
			e.Type = EventType(s)
		case "ts":
			e.TS, _ = v.(float64)
		case "message":
			e.Message, _ = v.(string)
		case "text":
			e.Text, _ = v.(string)
		case "chunk_s":
			e.ChunkS, _ = v.(float64)
		case "rtf":
			e.RTF, _ = v.(float64)
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]any)
			}
			e.Extra[k] = v
		}
	}
	return nil
}

// TranscriptMessage is a finished transcript broadcast on the bus.
type TranscriptMessage struct {
	RunID     string               `json:"run_id"`
	Source    string               `json:"source"`
	Mode      string               `json:"mode"`
	Segments  []transcript.Segment `json:"segments"`
	CreatedAt time.Time            `json:"created_at"`
}

const (
	SubjectEvents      = "events"
	SubjectTranscripts = "transcripts"
)

// EventSubject is <prefix>.events.<session>.
func EventSubject(prefix, sessionID string) string {
	return prefix + "." + SubjectEvents + "." + sessionID
}

// TranscriptSubject is <prefix>.transcripts.
func TranscriptSubject(prefix string) string {
	return prefix + "." + SubjectTranscripts
}
