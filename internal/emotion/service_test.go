package emotion

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/loqalabs/voiceforge/internal/bus"
	"github.com/loqalabs/voiceforge/internal/config"
	"github.com/loqalabs/voiceforge/internal/natsserver"
	"github.com/loqalabs/voiceforge/internal/protocol"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestServiceReport(t *testing.T) {
	svc := NewService(config.EmotionConfig{Enabled: true}, nil, newLogger())
	reply := svc.Report(context.Background(), "I am happy. I am sad.", true)
	if len(reply.Sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %+v", reply.Sentences)
	}
	if reply.Sentences[0].Emotion != "happy" || reply.Sentences[1].Emotion != "sad" {
		t.Fatalf("unexpected sentence emotions %+v", reply.Sentences)
	}
	if reply.Scores["happy"] <= 0 || reply.Scores["sad"] <= 0 {
		t.Fatalf("expected happy and sad scores, got %v", reply.Scores)
	}
	if !svc.Healthy() {
		t.Fatalf("service without bus should be healthy")
	}

	empty := svc.Report(context.Background(), "", false)
	if empty.Emotion != "normal" || empty.Confidence != 1.0 || len(empty.Scores) != 0 || empty.Sentences != nil {
		t.Fatalf("unexpected empty reply %+v", empty)
	}
}

func TestServiceBusRequest(t *testing.T) {
	ns, err := natsserver.Start(config.BusConfig{Embedded: true, Port: -1}, newLogger())
	if err != nil {
		t.Fatalf("start nats: %v", err)
	}
	defer ns.Shutdown()
	client, err := bus.Connect(context.Background(), config.BusConfig{Servers: []string{ns.ClientURL()}, ConnectTimeout: 2000}, newLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	svc := NewService(config.EmotionConfig{Enabled: true}, client, newLogger())
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var reply protocol.EmotionReply
	if err := client.RequestJSON(ctx, protocol.SubjectEmotionAnalyze, protocol.EmotionRequest{Text: "The meeting is at 3pm."}, &reply); err != nil {
		t.Fatalf("request: %v", err)
	}
	if reply.Emotion != string(Normal) || reply.Sentences != nil {
		t.Fatalf("unexpected reply %+v", reply)
	}

	msg, err := client.Conn().RequestWithContext(ctx, protocol.SubjectEmotionAnalyze, []byte("{not json"))
	if err != nil {
		t.Fatalf("malformed request got no reply: %v", err)
	}
	var failed protocol.EmotionReply
	if err := json.Unmarshal(msg.Data, &failed); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if failed.Error == "" {
		t.Fatalf("expected an error reply, got %+v", failed)
	}
}
