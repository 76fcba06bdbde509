package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"peerswap/core/events"
)

const (
	wsWriteTimeout = 10 * time.Second
)

type eventPayload struct {
	Height     uint64            `json:"height"`
	Time       time.Time         `json:"time"`
	Type       string            `json:"type"`
	Sender     string            `json:"sender"`
	Attributes map[string]string `json:"attributes"`
	Transfers  []events.Transfer `json:"transfers"`
}

// handleEventsWS streams committed execution events. The optional type query
// parameter restricts the stream to one event type.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	filter := strings.TrimSpace(r.URL.Query().Get("type"))
	// Subscribe before the handshake completes so no event committed after
	// the client sees the upgrade is missed.
	id, updates, cancel := s.hub.Subscribe(s.buffer)
	defer cancel()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	s.logger.Debug("event subscriber connected", slog.String("subscriber", id.String()))

	ctx := conn.CloseRead(r.Context())
	if err := streamEvents(ctx, conn, updates, filter); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
	s.logger.Debug("event subscriber disconnected", slog.String("subscriber", id.String()))
}

func streamEvents(ctx context.Context, conn *websocket.Conn, updates <-chan events.Event, filter string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return nil
			}
			exec, ok := evt.(events.Executed)
			if !ok {
				continue
			}
			if filter != "" && exec.EventType() != filter {
				continue
			}
			if err := writeEvent(ctx, conn, exec); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, exec events.Executed) error {
	wire := exec.Event()
	if wire == nil {
		return nil
	}
	data, err := json.Marshal(eventPayload{
		Height:     exec.Height,
		Time:       exec.Time.UTC(),
		Type:       wire.Type,
		Sender:     exec.Sender,
		Attributes: wire.Attributes,
		Transfers:  exec.Transfers,
	})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
