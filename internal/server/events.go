package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pddg/sparkly/internal/bridge"
	"github.com/pddg/sparkly/internal/logging"
	"github.com/pddg/sparkly/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum size of an action sent by the peer.
	maxMessageSize = maxActionSize
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// EventStreamHandler streams every event published by the bridge as JSON
// text messages. Text messages sent by the peer are decoded as actions.
type EventStreamHandler struct {
	ctx    context.Context
	bridge Bridge
}

func NewEventStreamHandler(ctx context.Context, b Bridge) *EventStreamHandler {
	return &EventStreamHandler{
		ctx:    ctx,
		bridge: b,
	}
}

func (h *EventStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(h.ctx)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(r.Context(), "websocket upgrade error", "error", err, "remote_addr", r.RemoteAddr)
		return
	}
	sub := h.bridge.Subscribe()
	logger = logger.With("subscription_id", sub.ID(), "remote_addr", conn.RemoteAddr().String())
	logger.InfoContext(h.ctx, "event stream opened")

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	go func() {
		defer cancel()
		h.readPump(ctx, conn, logger)
	}()
	h.writePump(ctx, conn, sub, logger)
	sub.Close()
	conn.Close()
	logger.InfoContext(h.ctx, "event stream closed")
}

func (h *EventStreamHandler) readPump(ctx context.Context, conn *websocket.Conn, logger *slog.Logger) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnContext(ctx, "websocket read error", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		action, err := protocol.UnmarshalAction(data)
		if err != nil {
			logger.WarnContext(ctx, "rejected action", "error", err)
			continue
		}
		h.bridge.Send(action)
	}
}

func (h *EventStreamHandler) writePump(ctx context.Context, conn *websocket.Conn, sub *bridge.Subscription, logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// WriteControl may be called concurrently with the writer.
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()
	for {
		event, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, bridge.ErrClosed) {
				conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge closed"),
					time.Now().Add(writeWait),
				)
			}
			return
		}
		data, err := protocol.MarshalEvent(event)
		if err != nil {
			logger.ErrorContext(ctx, "failed to encode event", "event", event.Type(), "error", err)
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.DebugContext(ctx, "websocket write error", "error", err)
			return
		}
	}
}
