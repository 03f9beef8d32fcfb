package decode

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
)

// MinChunkSeconds is the shortest audio the acoustic model is invoked with.
const MinChunkSeconds = 0.5

type Config struct {
	UseLanguageModel bool
}

// Decoder maps one chunk to restored text. The strategy is fixed at
// construction. A Decoder is owned by a single consumer goroutine.
type Decoder struct {
	model    AcousticModel
	labels   Labels
	strategy Strategy
	tracer   trace.Tracer
}

// New validates the model context and selects the decoding strategy. A
// label count that does not match the model vocabulary is a configuration
// error, as is requesting language model decoding without a decoder.
func New(model AcousticModel, labels Labels, cfg Config, lm LMDecoder) (*Decoder, error) {
	if model == nil {
		return nil, asrerr.Configf("decoder", "acoustic model is required")
	}
	vocab := model.VocabSize()
	if vocab <= 0 {
		return nil, asrerr.Configf("decoder", "model vocab size must be positive, got %d", vocab)
	}
	labels = labels.Truncate(vocab)
	if len(labels) != vocab {
		return nil, asrerr.Configf("decoder", "label count %d does not match model vocab size %d", len(labels), vocab)
	}

	var strategy Strategy
	if cfg.UseLanguageModel {
		if lm == nil {
			return nil, asrerr.Configf("decoder", "language model decoding requested without a decoder")
		}
		if n := lm.LabelCount(); n != vocab {
			return nil, asrerr.Configf("decoder", "language model has %d labels, model vocab size is %d", n, vocab)
		}
		strategy = LanguageModel(lm)
	} else {
		strategy = Greedy(labels)
	}
	return &Decoder{
		model:    model,
		labels:   labels,
		strategy: strategy,
		tracer:   otel.Tracer("loqa-transcribe/decode"),
	}, nil
}

// Strategy reports the selected strategy name.
func (d *Decoder) Strategy() string { return d.strategy.Name() }

// Labels returns the validated label list.
func (d *Decoder) Labels() Labels { return d.labels }

// Transcribe decodes one chunk. Chunks shorter than MinChunkSeconds yield
// empty text without invoking the model. Failures are Decode errors.
func (d *Decoder) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if sampleRate <= 0 {
		return "", asrerr.Configf("transcribe", "sample rate must be positive, got %d", sampleRate)
	}
	if float64(len(samples))/float64(sampleRate) < MinChunkSeconds {
		return "", nil
	}

	ctx, span := d.tracer.Start(ctx, "decode.chunk", trace.WithAttributes(
		attribute.String("decode.strategy", d.strategy.Name()),
		attribute.Float64("decode.chunk_s", float64(len(samples))/float64(sampleRate)),
	))
	defer span.End()

	out, err := d.model.Infer(ctx, samples, sampleRate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "infer")
		return "", asrerr.Decode("infer", err)
	}
	if out.Steps > 0 && out.Width != len(d.labels) {
		err := fmt.Errorf("model output width %d, want %d", out.Width, len(d.labels))
		span.SetStatus(codes.Error, "width")
		return "", asrerr.Decode("infer", err)
	}
	raw, err := d.strategy.Decode(ctx, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, d.strategy.Name())
		return "", asrerr.Decode(d.strategy.Name(), err)
	}
	return Restore(raw), nil
}
