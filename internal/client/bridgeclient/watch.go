package bridgeclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pddg/sparkly/internal/logging"
	"github.com/pddg/sparkly/internal/protocol"
)

// ErrStopWatching can be returned by a watch handler to stop without error.
var ErrStopWatching = errors.New("stop watching")

// Watch streams the events published by the agent to handle until ctx is
// done, the agent closes the stream or handle returns an error.
func (c *Client) Watch(ctx context.Context, handle func(protocol.Event) error) error {
	wsURL, err := c.eventsURL()
	if err != nil {
		return fmt.Errorf("bridgeclient.Client.Watch: failed to build websocket URL: %w", err)
	}
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("bridgeclient.Client.Watch: failed to connect: %w", err)
	}
	defer conn.Close()
	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "watching events", "url", wsURL)

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	})
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("bridgeclient.Client.Watch: failed to read: %w", err)
		}
		event, err := protocol.UnmarshalEvent(data)
		if err != nil {
			logger.WarnContext(ctx, "skipped undecodable event", "error", err)
			continue
		}
		if err := handle(event); err != nil {
			if errors.Is(err, ErrStopWatching) {
				return nil
			}
			return err
		}
	}
}

func (c *Client) eventsURL() (string, error) {
	u, err := url.Parse(c.baseURL + "events")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	return u.String(), nil
}
