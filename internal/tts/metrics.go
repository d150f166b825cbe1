package tts

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/loqalabs/voiceforge/tts"

type pipelineMetrics struct {
	requests  metric.Int64Counter
	segments  metric.Int64Counter
	seconds   metric.Float64Histogram
	latency   metric.Float64Histogram
	fallbacks metric.Int64Counter
}

func newPipelineMetrics() (*pipelineMetrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &pipelineMetrics{}
	var err error
	if m.requests, err = meter.Int64Counter("voiceforge.synthesis.requests",
		metric.WithDescription("Synthesis requests by outcome")); err != nil {
		return nil, err
	}
	if m.segments, err = meter.Int64Counter("voiceforge.synthesis.segments",
		metric.WithDescription("Segments sent to the speech backend")); err != nil {
		return nil, err
	}
	if m.seconds, err = meter.Float64Histogram("voiceforge.synthesis.audio_seconds",
		metric.WithDescription("Duration of synthesized audio"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.latency, err = meter.Float64Histogram("voiceforge.synthesis.latency_ms",
		metric.WithDescription("Wall time of a synthesis request"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.fallbacks, err = meter.Int64Counter("voiceforge.synthesis.merge_fallbacks",
		metric.WithDescription("Merges that degraded to the first segment")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *pipelineMetrics) recordRequest(ctx context.Context, err error, latencyMS float64) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.requests.Add(ctx, 1, attrs)
	m.latency.Record(ctx, latencyMS, attrs)
}

func (m *pipelineMetrics) recordAudio(ctx context.Context, segments int, seconds float64) {
	if m == nil {
		return
	}
	m.segments.Add(ctx, int64(segments))
	m.seconds.Record(ctx, seconds)
}

func (m *pipelineMetrics) recordFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1)
}
