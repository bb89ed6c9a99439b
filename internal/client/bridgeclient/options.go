package bridgeclient

import (
	"time"

	"github.com/gorilla/websocket"
)

type Option func(*Client)

// WithRetry sets how often and how long a failed status or settings request
// is retried. Actions are never retried.
func WithRetry(retries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retrying.RetryMax = retries
		c.retrying.RetryWaitMin = waitMin
		c.retrying.RetryWaitMax = waitMax
	}
}

// WithDialer sets the dialer used by Watch.
// The default is websocket.DefaultDialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = dialer
	}
}
