package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the transcription instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	chunks        metric.Int64Counter
	decodeErrors  metric.Int64Counter
	droppedFrames metric.Int64Counter
	files         metric.Int64Counter
	rtf           metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	chunks, err := meter.Int64Counter("transcribe.chunks",
		metric.WithDescription("Chunks decoded"))
	if err != nil {
		return nil, err
	}
	decodeErrors, err := meter.Int64Counter("transcribe.decode.errors",
		metric.WithDescription("Chunks whose decode failed"))
	if err != nil {
		return nil, err
	}
	dropped, err := meter.Int64Counter("transcribe.stream.dropped_frames",
		metric.WithDescription("Capture frames evicted by the drop_oldest queue policy"))
	if err != nil {
		return nil, err
	}
	files, err := meter.Int64Counter("transcribe.files",
		metric.WithDescription("Files processed in batch mode"))
	if err != nil {
		return nil, err
	}
	rtf, err := meter.Float64Histogram("transcribe.decode.rtf",
		metric.WithDescription("Decode wall time divided by chunk duration"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		chunks:        chunks,
		decodeErrors:  decodeErrors,
		droppedFrames: dropped,
		files:         files,
		rtf:           rtf,
	}, nil
}

// Noop returns instruments backed by a no-op meter.
func Noop() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

func (m *Metrics) ChunkDecoded(ctx context.Context, mode string, rtf float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	m.chunks.Add(ctx, 1, attrs)
	m.rtf.Record(ctx, rtf, attrs)
}

func (m *Metrics) DecodeFailed(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.decodeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

func (m *Metrics) FramesDropped(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedFrames.Add(ctx, int64(n))
}

func (m *Metrics) FileProcessed(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.files.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
