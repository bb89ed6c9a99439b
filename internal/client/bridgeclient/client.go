package bridgeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/pddg/sparkly/internal/logging"
	"github.com/pddg/sparkly/internal/protocol"
)

// Client talks to the API served by sparkly-agent.
type Client struct {
	httpClient *http.Client
	// retrying is used for idempotent requests only.
	retrying *retryablehttp.Client
	dialer   *websocket.Dialer
	baseURL  string
}

func NewClient(
	httpClient *http.Client,
	baseURL string,
	options ...Option,
) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	retrying := retryablehttp.NewClient()
	retrying.HTTPClient = httpClient
	retrying.RetryMax = 3
	retrying.RetryWaitMin = 500 * time.Millisecond
	retrying.RetryWaitMax = 5 * time.Second
	retrying.Logger = nil
	retrying.RequestLogHook = func(l retryablehttp.Logger, r *http.Request, i int) {
		logging.FromContext(r.Context()).DebugContext(r.Context(), "agent request", "method", r.Method, "url", r.URL.String(), "attempt", i)
	}
	c := &Client{
		httpClient: httpClient,
		retrying:   retrying,
		dialer:     websocket.DefaultDialer,
		baseURL:    baseURL,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Send posts an action. The agent only acknowledges receipt; use Watch to
// observe the consequences.
func (c *Client) Send(ctx context.Context, action protocol.Action) error {
	body, err := protocol.MarshalAction(action)
	if err != nil {
		return fmt.Errorf("bridgeclient.Client.Send: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"actions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridgeclient.Client.Send: failed to send request: %w", err)
	}
	defer resp.Body.Close()
	bodyByte, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("bridgeclient.Client.Send: failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("bridgeclient.Client.Send: unexpected status code: %d %s", resp.StatusCode, string(bodyByte))
	}
	return nil
}

// Status is the state of the bridge reported by the agent.
type Status struct {
	Started            bool
	Stage              protocol.Stage
	State              protocol.UpdateCheckState
	CanCheckForUpdates bool
	PendingCallback    string
	SessionID          string
	Subscribers        int
}

type statusResponse struct {
	Started            bool            `json:"started"`
	Stage              string          `json:"stage"`
	State              json.RawMessage `json:"state"`
	CanCheckForUpdates bool            `json:"can_check_for_updates"`
	PendingCallback    string          `json:"pending_callback"`
	SessionID          string          `json:"session_id"`
	Subscribers        int             `json:"subscribers"`
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	var res statusResponse
	if err := c.getJSON(ctx, "status", &res); err != nil {
		return nil, fmt.Errorf("bridgeclient.Client.Status: %w", err)
	}
	stage, err := protocol.ParseStage(res.Stage)
	if err != nil {
		return nil, fmt.Errorf("bridgeclient.Client.Status: %w", err)
	}
	state, err := protocol.UnmarshalState(res.State)
	if err != nil {
		return nil, fmt.Errorf("bridgeclient.Client.Status: %w", err)
	}
	return &Status{
		Started:            res.Started,
		Stage:              stage,
		State:              state,
		CanCheckForUpdates: res.CanCheckForUpdates,
		PendingCallback:    res.PendingCallback,
		SessionID:          res.SessionID,
		Subscribers:        res.Subscribers,
	}, nil
}

func (c *Client) Settings(ctx context.Context) (*protocol.Settings, error) {
	var res *protocol.Settings
	if err := c.getJSON(ctx, "settings", &res); err != nil {
		return nil, fmt.Errorf("bridgeclient.Client.Settings: %w", err)
	}
	return res, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.retrying.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	bodyByte, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d %s", resp.StatusCode, string(bodyByte))
	}
	if err := json.Unmarshal(bodyByte, v); err != nil {
		return fmt.Errorf("failed to unmarshal response body: %w", err)
	}
	return nil
}
