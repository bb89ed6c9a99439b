package e2e_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pddg/sparkly/internal/bridge"
	"github.com/pddg/sparkly/internal/client/bridgeclient"
	"github.com/pddg/sparkly/internal/metrics"
	"github.com/pddg/sparkly/internal/mockengine"
	"github.com/pddg/sparkly/internal/protocol"
	"github.com/pddg/sparkly/internal/server"
	"github.com/pddg/sparkly/internal/settings"
	"github.com/pddg/sparkly/internal/vtime"
)

const (
	stepInterval = 10 * time.Millisecond
	eventTimeout = 10 * time.Second
)

type agent struct {
	url    string
	client *bridgeclient.Client
	engine *mockengine.Engine
	store  *settings.MemoryStore
}

// setup runs an agent the way sparkly-agent wires it, driven by the wall clock.
func setup(t *testing.T, engineOptions ...mockengine.Option) agent {
	t.Helper()
	ctx := testContext(t)
	scheduler := vtime.New(vtime.WithTick(stepInterval))
	eng := mockengine.New(ctx, scheduler, engineOptions...)
	store := settings.NewMemoryStore()
	b := bridge.New(ctx, eng, bridge.WithSettingsStore(store))
	go scheduler.Pump(ctx, stepInterval/2)

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewStatusMetrics(b))
	registry.MustRegister(metrics.NewEventMetrics(ctx, b.Subscribe()))

	srv := httptest.NewServer(server.NewAPIServer(ctx, b, server.WithGatherer(registry)))
	t.Cleanup(srv.Close)
	t.Cleanup(b.Close)
	return agent{
		url:    srv.URL + "/",
		client: bridgeclient.NewClient(cleanhttp.DefaultClient(), srv.URL),
		engine: eng,
		store:  store,
	}
}

// watch streams the agent's events into the returned channel. It returns once
// the agent counts the new subscriber.
func (a agent) watch(t *testing.T) <-chan protocol.Event {
	t.Helper()
	ctx := testContext(t)
	before, err := a.client.Status(ctx)
	require.NoError(t, err)

	events := make(chan protocol.Event, 256)
	go func() {
		defer close(events)
		_ = a.client.Watch(ctx, func(e protocol.Event) error {
			events <- e
			return nil
		})
	}()
	require.Eventually(t, func() bool {
		status, err := a.client.Status(ctx)
		return err == nil && status.Subscribers > before.Subscribers
	}, eventTimeout, stepInterval)
	return events
}

func (a agent) send(t *testing.T, action protocol.Action) {
	t.Helper()
	require.NoError(t, a.client.Send(testContext(t), action))
}

func (a agent) metrics(t *testing.T) string {
	t.Helper()
	req, err := http.NewRequestWithContext(testContext(t), http.MethodGet, a.url+"metrics", nil)
	require.NoError(t, err)
	resp, err := cleanhttp.DefaultClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func next(t *testing.T, events <-chan protocol.Event) protocol.Event {
	t.Helper()
	select {
	case e, ok := <-events:
		require.True(t, ok, "event stream closed")
		return e
	case <-time.After(eventTimeout):
		require.FailNow(t, "timed out waiting for an event")
		return nil
	}
}

// until returns every event up to and including the first one for which
// match returns true.
func until(t *testing.T, events <-chan protocol.Event, match func(protocol.Event) bool) []protocol.Event {
	t.Helper()
	var seen []protocol.Event
	for {
		e := next(t, events)
		seen = append(seen, e)
		if match(e) {
			return seen
		}
	}
}

func atStage(stage protocol.Stage) func(protocol.Event) bool {
	return func(e protocol.Event) bool {
		u, ok := e.(protocol.UpdateCheck)
		return ok && protocol.StageOf(u.State) == stage
	}
}

func stages(events []protocol.Event) []protocol.Stage {
	var result []protocol.Stage
	for _, e := range events {
		if u, ok := e.(protocol.UpdateCheck); ok {
			result = append(result, protocol.StageOf(u.State))
		}
	}
	return result
}

func contains(body string, lines ...string) bool {
	for _, line := range lines {
		if !strings.Contains(body, line) {
			return false
		}
	}
	return true
}
