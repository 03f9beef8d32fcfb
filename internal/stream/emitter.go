package stream

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/loqalabs/loqa-transcribe/internal/protocol"
)

// Emitter receives live session events.
type Emitter interface {
	Emit(ev protocol.StreamEvent) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ev protocol.StreamEvent) error

func (f EmitterFunc) Emit(ev protocol.StreamEvent) error { return f(ev) }

type flusher interface {
	Flush() error
}

// JSONLEmitter writes one JSON object per line. Writes are serialized and
// a value that cannot be encoded is replaced by an error event.
type JSONLEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewJSONLEmitter(w io.Writer) *JSONLEmitter {
	return &JSONLEmitter{w: w}
}

func (e *JSONLEmitter) Emit(ev protocol.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		data, _ = json.Marshal(protocol.Error(time.Now(), "encode_failed", map[string]any{"detail": err.Error()}))
	}
	data = append(data, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	if f, ok := e.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// MultiEmitter fans events out to every emitter. Failures are logged and do
// not stop delivery to the rest.
type MultiEmitter struct {
	emitters []Emitter
	logger   *slog.Logger
}

func NewMultiEmitter(logger *slog.Logger, emitters ...Emitter) *MultiEmitter {
	var out []Emitter
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return &MultiEmitter{emitters: out, logger: logger}
}

func (m *MultiEmitter) Emit(ev protocol.StreamEvent) error {
	var first error
	for _, e := range m.emitters {
		if err := e.Emit(ev); err != nil {
			m.logger.Warn("emit failed", slog.String("type", string(ev.Type)), slogError(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
