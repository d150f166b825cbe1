package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loqalabs/voiceforge/internal/audio"
	"github.com/loqalabs/voiceforge/internal/chunker"
	"github.com/loqalabs/voiceforge/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Result is a fully assembled synthesis.
type Result struct {
	Audio    []byte
	Duration float64
	Format   string
	Segments int
	// Degraded is set when the merge fell back to the first segment's audio.
	Degraded error
}

// Pipeline chunks text, fans segments out to the backend and merges the audio.
type Pipeline struct {
	factory     Factory
	maxChars    int
	concurrency int
	timeout     time.Duration
	format      string
	tracer      trace.Tracer
	metrics     *pipelineMetrics
	logger      *slog.Logger
}

func NewPipeline(cfg config.SynthesisConfig, factory Factory, logger *slog.Logger) *Pipeline {
	p := &Pipeline{
		factory:     factory,
		maxChars:    cfg.MaxSegmentChars,
		concurrency: cfg.Concurrency,
		timeout:     time.Duration(cfg.RequestTimeoutMS) * time.Millisecond,
		format:      cfg.AudioFormat,
		tracer:      otel.Tracer(instrumentationName),
		logger:      logger.With(slog.String("component", "tts-pipeline")),
	}
	if p.maxChars <= 0 {
		p.maxChars = chunker.DefaultMaxChars
	}
	if p.concurrency <= 0 {
		p.concurrency = 3
	}
	if p.format == "" {
		p.format = "wav"
	}
	m, err := newPipelineMetrics()
	if err != nil {
		p.logger.Warn("failed to initialize metrics", slogError(err))
	} else {
		p.metrics = m
	}
	return p
}

// Synthesize speaks text of any length. Empty params.Format uses the
// configured default.
func (p *Pipeline) Synthesize(ctx context.Context, text string, params Params) (Result, error) {
	if params.Format == "" {
		params.Format = p.format
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	segments := chunker.Split(text, p.maxChars)
	ctx, span := p.tracer.Start(ctx, "tts.synthesize", trace.WithAttributes(
		attribute.Int("tts.segments", len(segments)),
		attribute.String("tts.format", params.Format),
		attribute.String("tts.voice_id", params.VoiceID),
	))
	defer span.End()
	started := time.Now()

	outcomes, total, err := p.Dispatch(ctx, segments, params)
	p.metrics.recordRequest(ctx, err, float64(time.Since(started).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	parts := make([][]byte, len(outcomes))
	for i, o := range outcomes {
		parts[i] = o.Audio
	}
	merged := audio.Merge(parts, params.Format)
	if merged.Degraded() {
		p.logger.Warn("audio merge fell back to first segment",
			slog.Int("segments", len(parts)),
			slogError(merged.Fallback),
		)
		p.metrics.recordFallback(ctx)
		span.AddEvent("merge.fallback")
	}
	p.metrics.recordAudio(ctx, len(segments), total)
	span.SetAttributes(attribute.Float64("tts.duration_s", total))

	return Result{
		Audio:    merged.Audio,
		Duration: total,
		Format:   params.Format,
		Segments: len(segments),
		Degraded: merged.Fallback,
	}, nil
}

// Dispatch calls the backend once per segment with at most the configured
// number of calls in flight. Outcomes come back in segment order; the first
// failure cancels the remaining calls and no outcomes are returned.
func (p *Pipeline) Dispatch(ctx context.Context, segments []chunker.Segment, params Params) ([]Outcome, float64, error) {
	if len(segments) == 0 {
		return nil, 0, NewProviderError(KindValidation, errors.New("no segments to synthesize"))
	}
	for i, seg := range segments {
		if seg.Index != i {
			return nil, 0, NewProviderError(KindValidation, fmt.Errorf("segment %d out of order (index %d)", i, seg.Index))
		}
	}

	outcomes := make([]Outcome, len(segments))

	if len(segments) == 1 {
		out, err := p.synthesizeSegment(ctx, segments[0], params)
		if err != nil {
			return nil, 0, err
		}
		outcomes[0] = out
		return outcomes, out.Duration, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, seg := range segments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return segmentError(seg.Index, err)
			}
			out, err := p.synthesizeSegment(gctx, seg, params)
			if err != nil {
				return err
			}
			outcomes[seg.Index] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var total float64
	for _, o := range outcomes {
		total += o.Duration
	}
	return outcomes, total, nil
}

func (p *Pipeline) synthesizeSegment(ctx context.Context, seg chunker.Segment, params Params) (Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "tts.segment", trace.WithAttributes(
		attribute.Int("tts.segment.index", seg.Index),
	))
	defer span.End()

	synth, err := p.factory()
	if err != nil {
		err = segmentError(seg.Index, NewProviderError(KindTransport, err))
		span.RecordError(err)
		return Outcome{}, err
	}
	got, err := synth.Synthesize(ctx, Request{Params: params, Text: seg.Text})
	if err != nil {
		err = segmentError(seg.Index, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Debug("segment synthesis failed", slog.Int("segment", seg.Index), slogError(err))
		return Outcome{}, err
	}
	return Outcome{Index: seg.Index, Audio: got.Data, Duration: got.Duration}, nil
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
