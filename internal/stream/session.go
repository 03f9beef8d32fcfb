// Package stream runs the live transcription pipeline: a producer pushes
// captured frames into a bounded queue and one consumer decodes fixed-hop
// overlapping windows, emitting events as it goes.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
	"github.com/loqalabs/loqa-transcribe/internal/chunk"
	"github.com/loqalabs/loqa-transcribe/internal/merge"
	"github.com/loqalabs/loqa-transcribe/internal/protocol"
	"github.com/loqalabs/loqa-transcribe/internal/telemetry"
	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type QueuePolicy string

const (
	// PolicyBlock makes Push wait for queue space. No audio is lost.
	PolicyBlock QueuePolicy = "block"
	// PolicyDropOldest evicts the oldest queued frame to make room.
	PolicyDropOldest QueuePolicy = "drop_oldest"
)

var (
	ErrNotRunning = errors.New("session is not running")
	ErrStopped    = errors.New("session stopped")
)

// Transcriber decodes one chunk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

type Config struct {
	Chunk        chunk.Config
	QueueSize    int
	Policy       QueuePolicy
	DrainTimeout time.Duration
	IdleInterval time.Duration
}

// Options carries optional collaborators.
type Options struct {
	// ID names the session; a random UUID is used when empty.
	ID      string
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
	Clock   func() time.Time
	// OnSegment observes every merged segment from the consumer goroutine.
	OnSegment func(transcript.Segment)
	Stitcher  merge.Stitcher
}

// Session owns the state of one live transcription session. Only the
// consumer goroutine touches the decoder and the sample window.
type Session struct {
	id      string
	cfg     Config
	dec     Transcriber
	emit    Emitter
	logger  *slog.Logger
	metrics *telemetry.Metrics
	clock   func() time.Time
	onSeg   func(transcript.Segment)

	queue chan []float32
	quit  chan struct{}
	done  chan struct{}
	state atomic.Int32

	cancel   context.CancelFunc
	stopOnce sync.Once
	dropped  atomic.Int64

	mu     sync.Mutex
	merger *merge.Merger
}

func NewSession(cfg Config, dec Transcriber, emit Emitter, opts Options) (*Session, error) {
	if dec == nil || emit == nil {
		return nil, asrerr.Configf("stream session", "decoder and emitter are required")
	}
	if cfg.Chunk.ChunkSamples <= 0 || cfg.Chunk.HopSamples <= 0 || cfg.Chunk.SampleRate <= 0 {
		return nil, asrerr.Configf("stream session", "invalid chunk configuration")
	}
	if cfg.QueueSize <= 0 {
		return nil, asrerr.Configf("stream session", "queue size must be positive, got %d", cfg.QueueSize)
	}
	switch cfg.Policy {
	case PolicyBlock, PolicyDropOldest:
	case "":
		cfg.Policy = PolicyBlock
	default:
		return nil, asrerr.Configf("stream session", "unknown queue policy %q", cfg.Policy)
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		id:      id,
		cfg:     cfg,
		dec:     dec,
		emit:    emit,
		logger:  opts.Logger.With(slog.String("component", "stream"), slog.String("session_id", id)),
		metrics: opts.Metrics,
		clock:   opts.Clock,
		onSeg:   opts.OnSegment,
		queue:   make(chan []float32, cfg.QueueSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		merger:  merge.NewMerger(opts.Stitcher),
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

// Done is closed when the consumer exits.
func (s *Session) Done() <-chan struct{} { return s.done }

// Dropped reports frames evicted under PolicyDropOldest.
func (s *Session) Dropped() int64 { return s.dropped.Load() }

// Start launches the consumer. The session stays bound to ctx: cancelling
// it aborts decoding without draining.
func (s *Session) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("start: session is %s", s.State())
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.consume(ctx)
	s.logger.Info("session started",
		slog.Float64("chunk_s", s.cfg.Chunk.ChunkSeconds()),
		slog.Int("hop_samples", s.cfg.Chunk.HopSamples),
		slog.String("queue_policy", string(s.cfg.Policy)))
	return nil
}

// Push enqueues a copy of samples. While paused the audio is discarded
// here and never reaches the queue.
func (s *Session) Push(samples []float32) error {
	switch s.State() {
	case StatePaused:
		return nil
	case StateRunning:
	case StateStopping, StateStopped:
		return ErrStopped
	default:
		return ErrNotRunning
	}
	if len(samples) == 0 {
		return nil
	}
	frame := append([]float32(nil), samples...)

	if s.cfg.Policy == PolicyBlock {
		select {
		case s.queue <- frame:
			return nil
		case <-s.quit:
			return ErrStopped
		}
	}
	for {
		select {
		case s.queue <- frame:
			return nil
		case <-s.quit:
			return ErrStopped
		default:
		}
		select {
		case <-s.queue:
			s.dropped.Add(1)
			s.metrics.FramesDropped(context.Background(), 1)
		default:
		}
	}
}

// TogglePause flips between running and paused and returns the new state.
func (s *Session) TogglePause() State {
	if s.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		s.status(protocol.StatusPaused, nil)
		return StatePaused
	}
	if s.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		s.status(protocol.StatusResumed, nil)
		return StateRunning
	}
	return s.State()
}

// Segments returns the merged segments decoded so far.
func (s *Session) Segments() []transcript.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merger.Segments()
}

// Stop signals the consumer to drain the queue and waits up to the drain
// timeout. The merged segments are returned whether or not the drain
// finished.
func (s *Session) Stop() []transcript.Segment {
	s.stopOnce.Do(func() {
		if s.state.CompareAndSwap(int32(StateIdle), int32(StateStopped)) {
			close(s.quit)
			close(s.done)
			return
		}
		s.state.Store(int32(StateStopping))
		close(s.quit)

		timer := time.NewTimer(s.cfg.DrainTimeout)
		defer timer.Stop()
		select {
		case <-s.done:
		case <-timer.C:
			s.logger.Warn("consumer did not drain in time", slog.Duration("timeout", s.cfg.DrainTimeout))
			s.cancel()
		}
		s.state.Store(int32(StateStopped))
		s.status(protocol.StatusStopped, map[string]any{"dropped_frames": s.Dropped()})
	})
	return s.Segments()
}

// Ready emits the ready status describing the session.
func (s *Session) Ready(useLM bool) {
	s.status(protocol.StatusReady, map[string]any{
		"sample_rate": s.cfg.Chunk.SampleRate,
		"chunk_s":     s.cfg.Chunk.ChunkSeconds(),
		"overlap":     1 - float64(s.cfg.Chunk.HopSamples)/float64(s.cfg.Chunk.ChunkSamples),
		"use_lm":      useLM,
		"session_id":  s.id,
	})
}

func (s *Session) consume(ctx context.Context) {
	defer close(s.done)
	defer s.cancel()

	w := chunk.NewWindow(s.cfg.Chunk)
	var lastReport time.Time
	for {
		select {
		case frame := <-s.queue:
			s.process(ctx, w, frame, &lastReport)
		case <-s.quit:
			for {
				select {
				case frame := <-s.queue:
					if ctx.Err() != nil {
						return
					}
					s.process(ctx, w, frame, &lastReport)
				default:
					if n := w.Discard(); n > 0 {
						s.logger.Debug("discarded undecoded remainder", slog.Int("samples", n))
					}
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) process(ctx context.Context, w *chunk.Window, frame []float32, lastReport *time.Time) {
	w.Append(frame)
	for {
		ch, ok := w.Next()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.decode(ctx, ch, lastReport)
	}
}

func (s *Session) decode(ctx context.Context, ch chunk.Chunk, lastReport *time.Time) {
	chunkS := s.cfg.Chunk.ChunkSeconds()
	started := s.clock()
	text, err := s.dec.Transcribe(ctx, ch.Samples, s.cfg.Chunk.SampleRate)
	if err != nil {
		s.logger.Error("chunk decode failed", slog.Float64("start_s", ch.StartS), slogError(err))
		s.metrics.DecodeFailed(ctx, "stream")
		s.emitEvent(protocol.Error(s.clock(), protocol.ErrTranscribeFailed, map[string]any{"detail": err.Error()}))
		return
	}
	now := s.clock()
	rtf := RealTimeFactor(now.Sub(started), chunkS)
	s.metrics.ChunkDecoded(ctx, "stream", rtf)

	if text == "" {
		if now.Sub(*lastReport) > s.cfg.IdleInterval {
			s.status(protocol.StatusIdle, nil)
			*lastReport = now
		}
		return
	}
	s.emitEvent(protocol.ASR(now, text, chunkS, rtf))
	*lastReport = now

	s.mu.Lock()
	seg, ok := s.merger.Push(transcript.Segment{Start: ch.StartS, End: ch.EndS, Text: text})
	s.mu.Unlock()
	if ok && s.onSeg != nil {
		s.onSeg(seg)
	}
}

func (s *Session) status(message string, extra map[string]any) {
	s.emitEvent(protocol.Status(s.clock(), message, extra))
}

func (s *Session) emitEvent(ev protocol.StreamEvent) {
	if err := s.emit.Emit(ev); err != nil {
		s.logger.Warn("emit failed", slog.String("type", string(ev.Type)), slogError(err))
	}
}

// RealTimeFactor is decode wall time divided by audio duration.
func RealTimeFactor(elapsed time.Duration, audioSeconds float64) float64 {
	if audioSeconds <= 0 {
		return 0
	}
	return elapsed.Seconds() / audioSeconds
}
