// Package pipeline runs batch transcription of media files.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
	"github.com/loqalabs/loqa-transcribe/internal/audio"
	"github.com/loqalabs/loqa-transcribe/internal/chunk"
	"github.com/loqalabs/loqa-transcribe/internal/merge"
	"github.com/loqalabs/loqa-transcribe/internal/protocol"
	"github.com/loqalabs/loqa-transcribe/internal/store"
	"github.com/loqalabs/loqa-transcribe/internal/telemetry"
	"github.com/loqalabs/loqa-transcribe/internal/transcript"
	"github.com/loqalabs/loqa-transcribe/internal/vad"
)

// MinIntervalSeconds is the shortest speech interval worth decoding.
const MinIntervalSeconds = 0.15

// Loader produces a 16 kHz mono buffer from an input path.
type Loader interface {
	Load(ctx context.Context, input string) (audio.Buffer, error)
}

// Transcriber decodes one chunk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

// Publisher receives finished transcripts.
type Publisher interface {
	PublishTranscript(msg protocol.TranscriptMessage) error
}

type Config struct {
	Chunk   chunk.Config
	VAD     vad.Config
	UseVAD  bool
	Formats []transcript.Format
	// Output is a directory or base path; empty writes next to the input.
	Output string
}

type Options struct {
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
	Store     *store.Store
	Publisher Publisher
	Stitcher  merge.Stitcher
}

// Batch transcribes whole files synchronously.
type Batch struct {
	cfg     Config
	loader  Loader
	dec     Transcriber
	logger  *slog.Logger
	metrics *telemetry.Metrics
	store   *store.Store
	pub     Publisher
	stitch  merge.Stitcher
	tracer  trace.Tracer
}

func New(cfg Config, loader Loader, dec Transcriber, opts Options) (*Batch, error) {
	if loader == nil || dec == nil {
		return nil, asrerr.Configf("batch", "loader and decoder are required")
	}
	if cfg.Chunk.ChunkSamples <= 0 || cfg.Chunk.HopSamples <= 0 || cfg.Chunk.SampleRate <= 0 {
		return nil, asrerr.Configf("batch", "invalid chunk configuration")
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = []transcript.Format{transcript.FormatTXT}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Stitcher == nil {
		opts.Stitcher = merge.WordFraction{}
	}
	return &Batch{
		cfg:     cfg,
		loader:  loader,
		dec:     dec,
		logger:  opts.Logger.With(slog.String("component", "batch")),
		metrics: opts.Metrics,
		store:   opts.Store,
		pub:     opts.Publisher,
		stitch:  opts.Stitcher,
		tracer:  otel.Tracer("loqa-transcribe/pipeline"),
	}, nil
}

// FileResult reports the outcome for one input.
type FileResult struct {
	Input    string
	RunID    string
	Paths    []string
	Segments []transcript.Segment
	Duration time.Duration
	Err      error
}

// Run processes every input in order. A failing file does not stop the
// run; its error is reported in its result.
func (b *Batch) Run(ctx context.Context, inputs []string) []FileResult {
	results := make([]FileResult, 0, len(inputs))
	for _, input := range inputs {
		if ctx.Err() != nil {
			results = append(results, FileResult{Input: input, Err: ctx.Err()})
			continue
		}
		res := b.ProcessFile(ctx, input)
		if res.Err != nil {
			b.logger.Error("file failed", slog.String("input", input), slogError(res.Err))
			b.metrics.FileProcessed(ctx, "failed")
		} else {
			b.metrics.FileProcessed(ctx, "ok")
		}
		results = append(results, res)
	}
	return results
}

// ProcessFile loads, transcribes and writes one input.
func (b *Batch) ProcessFile(ctx context.Context, input string) FileResult {
	res := FileResult{Input: input, RunID: uuid.NewString()}
	started := time.Now()
	ctx, span := b.tracer.Start(ctx, "batch.file", trace.WithAttributes(
		attribute.String("input", input),
		attribute.String("run_id", res.RunID),
	))
	defer span.End()

	fail := func(err error) FileResult {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		res.Err = err
		res.Duration = time.Since(started)
		return res
	}

	buf, err := b.loader.Load(ctx, input)
	if err != nil {
		return fail(err)
	}
	if buf.SampleRate != audio.SampleRate {
		return fail(asrerr.Configf("load", "expected %d Hz audio, got %d", audio.SampleRate, buf.SampleRate))
	}
	span.SetAttributes(attribute.Float64("audio.duration_s", buf.Duration()))

	segs, err := b.Transcribe(ctx, buf)
	if err != nil {
		return fail(err)
	}
	res.Segments = segs

	base := transcript.OutputBase(input, b.cfg.Output)
	res.Paths, err = transcript.WriteAll(base, b.cfg.Formats, segs)
	if err != nil {
		return fail(err)
	}

	if b.store != nil {
		if err := b.store.SaveTranscript(ctx, store.Session{ID: res.RunID, Source: input, Mode: "batch"}, segs); err != nil {
			b.logger.Warn("archive transcript failed", slog.String("input", input), slogError(err))
		}
	}
	if b.pub != nil {
		msg := protocol.TranscriptMessage{RunID: res.RunID, Source: input, Mode: "batch", Segments: segs, CreatedAt: time.Now().UTC()}
		if err := b.pub.PublishTranscript(msg); err != nil {
			b.logger.Warn("publish transcript failed", slog.String("input", input), slogError(err))
		}
	}

	res.Duration = time.Since(started)
	b.logger.Info("file transcribed",
		slog.String("input", input),
		slog.Int("segments", len(segs)),
		slog.Any("outputs", res.Paths),
		slog.Duration("elapsed", res.Duration))
	return res
}

// Transcribe runs VAD, schedules chunks per speech interval, decodes them
// and merges the overlap. Chunk decode failures are logged and skipped.
func (b *Batch) Transcribe(ctx context.Context, buf audio.Buffer) ([]transcript.Segment, error) {
	intervals, err := b.intervals(buf)
	if err != nil {
		return nil, err
	}
	minLen := int(MinIntervalSeconds * float64(buf.SampleRate))

	var raw []transcript.Segment
	for _, iv := range intervals {
		if iv.Len() < minLen {
			b.logger.Debug("skipping short interval", slog.Int("start", iv.Start), slog.Int("samples", iv.Len()))
			continue
		}
		for ch := range b.cfg.Chunk.Schedule(buf.Samples, chunk.Range{Start: iv.Start, End: iv.End}) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			decodeStart := time.Now()
			text, err := b.dec.Transcribe(ctx, ch.Samples, buf.SampleRate)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil, err
				}
				b.logger.Error("chunk decode failed", slog.Float64("start_s", ch.StartS), slogError(err))
				b.metrics.DecodeFailed(ctx, "batch")
				continue
			}
			b.metrics.ChunkDecoded(ctx, "batch", time.Since(decodeStart).Seconds()/(ch.EndS-ch.StartS))
			if text == "" {
				continue
			}
			raw = append(raw, transcript.Segment{Start: ch.StartS, End: ch.EndS, Text: text})
		}
	}
	return merge.Merge(b.stitch, raw), nil
}

func (b *Batch) intervals(buf audio.Buffer) ([]vad.Interval, error) {
	whole := []vad.Interval{{Start: 0, End: len(buf.Samples)}}
	if !b.cfg.UseVAD {
		return whole, nil
	}
	found, err := vad.Detect(buf.Samples, buf.SampleRate, b.cfg.VAD)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		b.logger.Debug("no speech detected, decoding whole buffer")
		return whole, nil
	}
	return found, nil
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
