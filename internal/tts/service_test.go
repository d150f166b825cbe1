package tts

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loqalabs/voiceforge/internal/bus"
	"github.com/loqalabs/voiceforge/internal/config"
	"github.com/loqalabs/voiceforge/internal/emotion"
	"github.com/loqalabs/voiceforge/internal/history"
	"github.com/loqalabs/voiceforge/internal/natsserver"
	"github.com/loqalabs/voiceforge/internal/protocol"
	"github.com/nats-io/nats.go"
)

func openHistory(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(context.Background(), config.HistoryConfig{
		Path:          filepath.Join(t.TempDir(), "history.db"),
		RetentionMode: "persistent",
	}, newLogger())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func startBus(t *testing.T) *bus.Client {
	t.Helper()
	ns, err := natsserver.Start(config.BusConfig{Embedded: true, Port: -1}, newLogger())
	if err != nil {
		t.Fatalf("start nats: %v", err)
	}
	t.Cleanup(ns.Shutdown)
	client, err := bus.Connect(context.Background(), config.BusConfig{
		Servers:        []string{ns.ClientURL()},
		ConnectTimeout: 2000,
	}, newLogger())
	if err != nil {
		t.Fatalf("connect bus: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestServiceRunAutoEmotion(t *testing.T) {
	var seen atomic.Value
	fn := synthFunc(func(_ context.Context, req Request) (Audio, error) {
		seen.Store(req.Params)
		return Audio{Data: []byte("pcm"), Duration: 1}, nil
	})
	var calls atomic.Int32
	cfg := testConfig()
	cfg.DefaultVoice = "tc_default"
	store := openHistory(t)
	svc := NewService(context.Background(), cfg, nil, NewPipeline(cfg, countingFactory(fn, &calls), newLogger()),
		emotion.NewService(config.EmotionConfig{Enabled: true}, nil, newLogger()), store, newLogger())
	defer svc.Close()

	out, err := svc.Run(context.Background(), Job{
		Text:        "I am so happy and excited! 😊",
		Params:      Params{EmotionPreset: "sad", Format: "mp3"},
		AutoEmotion: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Detected == nil || out.Detected.Emotion != emotion.Happy {
		t.Fatalf("expected happy detection, got %+v", out.Detected)
	}
	params := seen.Load().(Params)
	if params.EmotionPreset != "" || params.VoiceID != "tc_default" {
		t.Fatalf("expected cleared preset and default voice, got %+v", params)
	}

	job, err := store.Get(context.Background(), out.ID)
	if err != nil {
		t.Fatalf("job not recorded: %v", err)
	}
	if job.Status != history.StatusOK || job.Emotion != "happy" || job.Format != "mp3" || job.Bytes != 3 {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestServiceRunRecordsFailure(t *testing.T) {
	fn := synthFunc(func(context.Context, Request) (Audio, error) {
		return Audio{}, NewProviderError(KindQuota, errors.New("QUOTA_INSUFFICIENT"))
	})
	var calls atomic.Int32
	cfg := testConfig()
	store := openHistory(t)
	svc := NewService(context.Background(), cfg, nil, NewPipeline(cfg, countingFactory(fn, &calls), newLogger()), nil, store, newLogger())
	defer svc.Close()

	if _, err := svc.Run(context.Background(), Job{Text: "hello"}); KindOf(err) != KindQuota {
		t.Fatalf("expected quota error, got %v", err)
	}
	jobs, err := store.List(context.Background(), 10)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("expected one job, got %d (%v)", len(jobs), err)
	}
	if jobs[0].Status != history.StatusFailed || jobs[0].ErrorKind != "quota" {
		t.Fatalf("unexpected job %+v", jobs[0])
	}
}

func TestServiceRunRejectsEmptyText(t *testing.T) {
	var calls atomic.Int32
	fn := synthFunc(func(context.Context, Request) (Audio, error) { return Audio{}, nil })
	cfg := testConfig()
	svc := NewService(context.Background(), cfg, nil, NewPipeline(cfg, countingFactory(fn, &calls), newLogger()), nil, nil, newLogger())
	defer svc.Close()
	if _, err := svc.Run(context.Background(), Job{Text: "   "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("backend should not be called for empty text")
	}
}

func TestServiceRunFillsDefaultsWithoutHistory(t *testing.T) {
	var seen atomic.Value
	fn := synthFunc(func(_ context.Context, req Request) (Audio, error) {
		seen.Store(req.Params)
		return Audio{Data: []byte("pcm"), Duration: 1}, nil
	})
	var calls atomic.Int32
	cfg := testConfig()
	svc := NewService(context.Background(), cfg, nil, NewPipeline(cfg, countingFactory(fn, &calls), newLogger()), nil, nil, newLogger())
	defer svc.Close()

	out, err := svc.Run(context.Background(), JobFromRequest(protocol.SynthesisRequest{Text: "hello", VoiceID: "tc_1"}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.ID == "" {
		t.Fatalf("expected a job id without a history store")
	}
	params := seen.Load().(Params)
	if params.EmotionPreset != "normal" || params.EmotionIntensity != 1.0 || params.Speed != 1.0 || params.Volume != 100 {
		t.Fatalf("expected request defaults, got %+v", params)
	}

	if _, err := svc.Run(context.Background(), Job{Text: "hello", Params: Params{EmotionPreset: "sad", Speed: 1.3, Volume: 60}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	params = seen.Load().(Params)
	if params.EmotionPreset != "sad" || params.Speed != 1.3 || params.Volume != 60 || params.EmotionIntensity != 1.0 {
		t.Fatalf("explicit params overwritten: %+v", params)
	}
}

func TestServiceBusRoundTrip(t *testing.T) {
	client := startBus(t)
	cfg := testConfig()
	factory, err := NewFactory(cfg)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	svc := NewService(context.Background(), cfg, client, NewPipeline(cfg, factory, newLogger()), nil, nil, newLogger())
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Close()
	if !svc.Healthy() {
		t.Fatalf("service should be healthy once subscribed")
	}

	events := make(chan *nats.Msg, 1)
	sub, err := client.Conn().ChanSubscribe(protocol.SubjectSynthesisDone, events)
	if err != nil {
		t.Fatalf("subscribe events: %v", err)
	}
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var reply protocol.SynthesisReply
	if err := client.RequestJSON(ctx, protocol.SubjectSynthesize, protocol.SynthesisRequest{RequestID: "r1", Text: "Hello over the bus."}, &reply); err != nil {
		t.Fatalf("request: %v", err)
	}
	if reply.Error != "" || reply.RequestID != "r1" || reply.JobID == "" || len(reply.Audio) <= 44 || reply.AudioFormat != "wav" {
		t.Fatalf("unexpected reply %+v", reply)
	}

	select {
	case msg := <-events:
		var evt protocol.SynthesisEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if evt.JobID != reply.JobID || evt.Status != history.StatusOK {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no synthesis event published")
	}

	var failed protocol.SynthesisReply
	if err := client.RequestJSON(ctx, protocol.SubjectSynthesize, protocol.SynthesisRequest{Text: ""}, &failed); err != nil {
		t.Fatalf("request: %v", err)
	}
	if failed.ErrorKind != "validation" {
		t.Fatalf("expected validation error reply, got %+v", failed)
	}
}
