package runtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/loqalabs/voiceforge/internal/protocol"
)

const (
	streamReadLimit = 64 << 10
	streamIdle      = 2 * time.Minute
	streamWrite     = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleAnalyzeStream scores every text frame it receives so editors can show
// the detected emotion while the user types. Clients may send either raw text
// or a JSON protocol.EmotionRequest.
func (a *api) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", slogError(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(streamReadLimit)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(streamIdle))
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, websocket.ErrCloseSent) {
				a.logger.Debug("analyze stream closed", slogError(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		req := protocol.EmotionRequest{Text: string(data)}
		if json.Valid(data) {
			var decoded protocol.EmotionRequest
			if err := json.Unmarshal(data, &decoded); err == nil {
				req = decoded
			}
		}
		reply := a.emotions.Report(r.Context(), req.Text, req.Sentences)

		_ = conn.SetWriteDeadline(time.Now().Add(streamWrite))
		if err := conn.WriteJSON(reply); err != nil {
			a.logger.Warn("analyze stream write failed", slog.String("remote", r.RemoteAddr), slogError(err))
			return
		}
	}
}
