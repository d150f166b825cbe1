package emotion

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/loqalabs/voiceforge/internal/bus"
	"github.com/loqalabs/voiceforge/internal/config"
	"github.com/loqalabs/voiceforge/internal/protocol"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Service answers emotion.analyze requests on the bus and counts detections.
type Service struct {
	cfg        config.EmotionConfig
	bus        *bus.Client
	sub        *nats.Subscription
	detections metric.Int64Counter
	logger     *slog.Logger
}

// NewService builds the service. busClient may be nil when the bus is
// disabled; Report still works for local callers.
func NewService(cfg config.EmotionConfig, busClient *bus.Client, log *slog.Logger) *Service {
	s := &Service{
		cfg:    cfg,
		bus:    busClient,
		logger: log.With(slog.String("component", "emotion-service")),
	}
	counter, err := otel.Meter("github.com/loqalabs/voiceforge/emotion").Int64Counter(
		"voiceforge.emotion.detections",
		metric.WithDescription("Detected emotions by label"),
	)
	if err != nil {
		s.logger.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	} else {
		s.detections = counter
	}
	return s
}

func (s *Service) Start() error {
	if !s.cfg.Enabled || s.bus == nil {
		return nil
	}
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectEmotionAnalyze, s.handleRequest)
	if err != nil {
		return err
	}
	s.sub = sub
	s.logger.Info("emotion service subscribed", slog.String("subject", protocol.SubjectEmotionAnalyze))
	return nil
}

func (s *Service) Close() {
	if s.sub != nil {
		_ = s.sub.Drain()
	}
}

func (s *Service) Healthy() bool { return !s.cfg.Enabled || s.bus == nil || s.sub != nil }

// Report analyzes text overall and, when sentences is set, per sentence.
func (s *Service) Report(ctx context.Context, text string, sentences bool) protocol.EmotionReply {
	res := Analyze(text)
	s.record(ctx, res.Emotion)

	reply := protocol.EmotionReply{
		Emotion:    string(res.Emotion),
		Confidence: res.Confidence,
		Scores:     make(map[string]float64, len(res.Scores)),
	}
	for e, v := range res.Scores {
		reply.Scores[string(e)] = v
	}
	if sentences {
		for _, sr := range AnalyzeSentences(text) {
			reply.Sentences = append(reply.Sentences, protocol.EmotionScore{
				Text:       sr.Text,
				Emotion:    string(sr.Emotion),
				Confidence: sr.Confidence,
			})
		}
	}
	return reply
}

// Detect is Analyze with the detection recorded in metrics.
func (s *Service) Detect(ctx context.Context, text string) Result {
	res := Analyze(text)
	s.record(ctx, res.Emotion)
	return res
}

func (s *Service) record(ctx context.Context, e Emotion) {
	if s.detections == nil {
		return
	}
	s.detections.Add(ctx, 1, metric.WithAttributes(attribute.String("emotion", string(e))))
}

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.EmotionRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode emotion request", slogError(err))
		s.respond(msg, protocol.EmotionReply{Error: err.Error()})
		return
	}
	s.respond(msg, s.Report(context.Background(), req.Text, req.Sentences))
}

func (s *Service) respond(msg *nats.Msg, reply protocol.EmotionReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Warn("failed to marshal emotion reply", slogError(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to respond to emotion request", slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
