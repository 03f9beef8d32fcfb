package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loqalabs/loqa-transcribe/internal/capture"
	"github.com/loqalabs/loqa-transcribe/internal/chunk"
	"github.com/loqalabs/loqa-transcribe/internal/decode"
	"github.com/loqalabs/loqa-transcribe/internal/protocol"
	"github.com/loqalabs/loqa-transcribe/internal/runtime"
	"github.com/loqalabs/loqa-transcribe/internal/store"
	"github.com/loqalabs/loqa-transcribe/internal/stream"
	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

type sessionSpec struct {
	mode      string
	source    string
	useLM     bool
	onSegment func(transcript.Segment)
}

// liveSession is a started stream session plus what must be torn down with
// it.
type liveSession struct {
	*stream.Session
	app      *app
	rt       *runtime.Runtime
	rtCancel context.CancelFunc
}

// startSession loads the decoder, reporting progress on out, and starts a
// stream session. Model and LM load failures are reported as error events
// and exit with code 2.
func (a *app) startSession(ctx context.Context, out stream.Emitter, spec sessionSpec) (*liveSession, error) {
	now := time.Now
	models := a.cfg.Models
	live := a.cfg.Live

	modelName := models.AcousticModel
	if modelName == "" {
		modelName = models.Mode
	}
	a.emit(out, protocol.Status(now(), protocol.StatusLoadingASR, map[string]any{"model": modelName}))
	model, labels, err := decode.LoadModel(ctx, models)
	if err != nil {
		a.emit(out, protocol.Error(now(), protocol.ErrModelLoadFailed, map[string]any{"detail": err.Error()}))
		return nil, withExitCode(2, err)
	}

	var lm decode.LMDecoder
	if spec.useLM {
		a.emit(out, protocol.Status(now(), protocol.StatusLoadingLM, map[string]any{"lm": models.LMPath}))
		if lm, err = decode.LoadLM(models, labels); err != nil {
			a.emit(out, protocol.Error(now(), protocol.ErrLMLoadFailed, map[string]any{"detail": err.Error()}))
			return nil, withExitCode(2, err)
		}
	}
	dec, err := decode.New(model, labels, decode.Config{UseLanguageModel: spec.useLM}, lm)
	if err != nil {
		a.emit(out, protocol.Error(now(), protocol.ErrModelLoadFailed, map[string]any{"detail": err.Error()}))
		return nil, withExitCode(2, err)
	}

	chunkCfg, err := chunk.Overlap(live.SampleRate, live.ChunkLengthS, live.Overlap)
	if err != nil {
		return nil, withExitCode(2, err)
	}

	if err := a.openStore(ctx); err != nil {
		return nil, withExitCode(2, err)
	}
	a.connectBus(ctx)

	id := uuid.NewString()
	emitters := []stream.Emitter{out}
	if a.bus != nil {
		emitters = append(emitters, a.bus.Events(id))
	}
	if err := a.store.SaveSession(ctx, store.Session{ID: id, Source: spec.source, Mode: spec.mode}); err != nil {
		a.logger.Warn("archive session failed", slog.String("error", err.Error()))
	}

	sess, err := stream.NewSession(stream.Config{
		Chunk:        chunkCfg,
		QueueSize:    live.QueueSize,
		Policy:       stream.QueuePolicy(live.QueuePolicy),
		DrainTimeout: live.DrainTimeout(),
		IdleInterval: live.IdleInterval(),
	}, dec, stream.NewMultiEmitter(a.logger, emitters...), stream.Options{
		ID:      id,
		Logger:  a.logger,
		Metrics: a.tel.Metrics,
		OnSegment: func(seg transcript.Segment) {
			if err := a.store.AppendSegments(context.Background(), id, seg); err != nil {
				a.logger.Warn("archive segment failed", slog.String("error", err.Error()))
			}
			if spec.onSegment != nil {
				spec.onSegment(seg)
			}
		},
	})
	if err != nil {
		return nil, withExitCode(2, err)
	}

	ls := &liveSession{Session: sess, app: a}
	if a.cfg.HTTP.Enabled {
		ls.rt = runtime.New(a.cfg.HTTP, a.tel.Handler(), func() runtime.SessionStatus {
			return runtime.SessionStatus{
				SessionID:     sess.ID(),
				State:         sess.State().String(),
				DroppedFrames: sess.Dropped(),
				Segments:      len(sess.Segments()),
				BusConnected:  a.bus.Healthy(),
			}
		}, a.logger)
		rtCtx, cancel := context.WithCancel(ctx)
		if err := ls.rt.Start(rtCtx); err != nil {
			cancel()
			return nil, withExitCode(2, err)
		}
		ls.rtCancel = cancel
	}

	// Cancelling ctx must not abort the drain on Stop.
	if err := sess.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	sess.Ready(spec.useLM)
	if ls.rt != nil {
		ls.rt.SetReady(true)
	}
	return ls, nil
}

// emit writes ev to out and logs a failed write.
func (a *app) emit(out stream.Emitter, ev protocol.StreamEvent) {
	if err := out.Emit(ev); err != nil {
		a.logger.Warn("emit failed", slog.String("type", string(ev.Type)), slog.String("error", err.Error()))
	}
}

// pump feeds PCM from r into the session until r ends, the session stops
// or ctx is cancelled. Read errors are reported as input_failed.
func (ls *liveSession) pump(ctx context.Context, r io.Reader, sampleRate int, out stream.Emitter) {
	done := make(chan error, 1)
	go func() {
		done <- capture.ReadPCM(ctx, r, sampleRate, ls.Push)
	}()
	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
	case <-ls.Done():
	}
	if err != nil && !errors.Is(err, stream.ErrStopped) && !errors.Is(err, context.Canceled) {
		ls.app.emit(out, protocol.Error(time.Now(), protocol.ErrInputFailed, map[string]any{"detail": err.Error()}))
	}
}

// stop drains the session and shuts the runtime down.
func (ls *liveSession) stop() []transcript.Segment {
	segs := ls.Stop()
	if ls.rt != nil {
		ls.rtCancel()
		ls.rt.Wait()
	}
	return segs
}
