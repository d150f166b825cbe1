package tts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/voiceforge/internal/bus"
	"github.com/loqalabs/voiceforge/internal/config"
	"github.com/loqalabs/voiceforge/internal/emotion"
	"github.com/loqalabs/voiceforge/internal/history"
	"github.com/loqalabs/voiceforge/internal/protocol"
	"github.com/nats-io/nats.go"
)

// Job is a synthesis request as accepted from HTTP or the bus.
type Job struct {
	RequestID   string
	Text        string
	Params      Params
	AutoEmotion bool
}

// JobResult is the outcome of a successful job.
type JobResult struct {
	ID string
	Result
	// Detected is set when the job asked for automatic emotion.
	Detected *emotion.Result
}

// Service runs synthesis jobs, records them and serves tts.synthesize.
type Service struct {
	cfg      config.SynthesisConfig
	bus      *bus.Client
	pipeline *Pipeline
	emotions *emotion.Service
	history  *history.Store
	sub      *nats.Subscription
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewService wires the pipeline to its collaborators. busClient, emotions
// and store are optional.
func NewService(parent context.Context, cfg config.SynthesisConfig, busClient *bus.Client, pipeline *Pipeline, emotions *emotion.Service, store *history.Store, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		cfg:      cfg,
		bus:      busClient,
		pipeline: pipeline,
		emotions: emotions,
		history:  store,
		ctx:      ctx,
		cancel:   cancel,
		logger:   log.With(slog.String("component", "tts-service")),
	}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled || s.bus == nil {
		return nil
	}
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectSynthesize, s.handleRequest)
	if err != nil {
		return err
	}
	s.sub = sub
	s.logger.Info("tts service subscribed", slog.String("subject", protocol.SubjectSynthesize))
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool { return !s.cfg.Enabled || s.bus == nil || s.sub != nil }

// Run synthesizes job. With AutoEmotion the text is scored locally for the
// caller and the preset is cleared so the provider picks its own emotion.
func (s *Service) Run(ctx context.Context, job Job) (JobResult, error) {
	if !s.cfg.Enabled {
		return JobResult{}, NewProviderError(KindValidation, errors.New("synthesis disabled"))
	}
	if strings.TrimSpace(job.Text) == "" {
		return JobResult{}, NewProviderError(KindValidation, errors.New("text is required"))
	}
	params := job.Params.WithDefaults()
	if params.VoiceID == "" {
		params.VoiceID = s.cfg.DefaultVoice
	}

	var detected *emotion.Result
	if job.AutoEmotion {
		var res emotion.Result
		if s.emotions != nil {
			res = s.emotions.Detect(ctx, job.Text)
		} else {
			res = emotion.Analyze(job.Text)
		}
		detected = &res
		params.EmotionPreset = ""
		s.logger.Debug("auto emotion detected",
			slog.String("emotion", string(res.Emotion)),
			slog.Float64("confidence", res.Confidence),
		)
	}

	res, err := s.pipeline.Synthesize(ctx, job.Text, params)

	record := history.Job{
		RequestID: job.RequestID,
		VoiceID:   params.VoiceID,
		Format:    res.Format,
		Segments:  res.Segments,
		Bytes:     len(res.Audio),
		Duration:  res.Duration,
		Status:    history.StatusOK,
	}
	if record.Format == "" {
		record.Format = params.Format
	}
	if record.Format == "" {
		record.Format = s.cfg.AudioFormat
	}
	if detected != nil {
		record.Emotion = string(detected.Emotion)
	}
	if err != nil {
		record.Status = history.StatusFailed
		record.ErrorKind = KindOf(err).String()
	}
	record = s.record(ctx, record)
	s.publishDone(record)

	if err != nil {
		s.logger.Warn("synthesis failed",
			slog.String("job_id", record.ID),
			slog.String("kind", record.ErrorKind),
			slogError(err),
		)
		return JobResult{}, err
	}
	s.logger.Info("synthesis completed",
		slog.String("job_id", record.ID),
		slog.Int("segments", res.Segments),
		slog.Float64("duration_s", res.Duration),
	)
	return JobResult{ID: record.ID, Result: res, Detected: detected}, nil
}

func (s *Service) record(ctx context.Context, job history.Job) history.Job {
	if s.history == nil {
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		job.CreatedAt = time.Now().UTC()
		return job
	}
	stored, err := s.history.Record(ctx, job)
	if err != nil {
		s.logger.Warn("failed to record synthesis job", slogError(err))
	}
	return stored
}

func (s *Service) publishDone(job history.Job) {
	if s.bus == nil {
		return
	}
	evt := protocol.SynthesisEvent{
		JobID:     job.ID,
		RequestID: job.RequestID,
		VoiceID:   job.VoiceID,
		Segments:  job.Segments,
		Bytes:     job.Bytes,
		Duration:  job.Duration,
		Status:    job.Status,
		ErrorKind: job.ErrorKind,
		Timestamp: job.CreatedAt,
	}
	if err := s.bus.PublishJSON(protocol.SubjectSynthesisDone, evt); err != nil {
		s.logger.Warn("failed to publish synthesis event", slogError(err))
	}
}

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.SynthesisRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode synthesis request", slogError(err))
		s.respond(msg, protocol.SynthesisReply{Error: err.Error(), ErrorKind: KindValidation.String()})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		out, err := s.Run(s.ctx, JobFromRequest(req))
		s.respond(msg, ReplyFor(req.RequestID, out, err))
	}()
}

func (s *Service) respond(msg *nats.Msg, reply protocol.SynthesisReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Warn("failed to marshal synthesis reply", slogError(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to respond to synthesis request", slogError(err))
	}
}

// JobFromRequest converts a wire request into a Job. Omitted fields are
// filled by Run.
func JobFromRequest(req protocol.SynthesisRequest) Job {
	return Job{
		RequestID: req.RequestID,
		Text:      req.Text,
		Params: Params{
			VoiceID:          req.VoiceID,
			EmotionPreset:    req.EmotionPreset,
			EmotionIntensity: req.EmotionIntensity,
			Pitch:            req.Pitch,
			Speed:            req.Speed,
			Volume:           req.Volume,
			Format:           req.AudioFormat,
			Model:            req.Model,
			Seed:             req.Seed,
		},
		AutoEmotion: req.AutoEmotion,
	}
}

// ReplyFor converts a job outcome into a wire reply.
func ReplyFor(requestID string, out JobResult, err error) protocol.SynthesisReply {
	if err != nil {
		return protocol.SynthesisReply{
			RequestID: requestID,
			Error:     err.Error(),
			ErrorKind: KindOf(err).String(),
		}
	}
	reply := protocol.SynthesisReply{
		JobID:       out.ID,
		RequestID:   requestID,
		Audio:       out.Audio,
		AudioFormat: out.Format,
		Duration:    out.Duration,
		Segments:    out.Segments,
		Degraded:    out.Degraded != nil,
	}
	if out.Detected != nil {
		reply.DetectedEmotion = string(out.Detected.Emotion)
		reply.EmotionConfidence = out.Detected.Confidence
	}
	return reply
}
