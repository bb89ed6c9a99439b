package metrics_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pddg/sparkly/internal/metrics"
	"github.com/pddg/sparkly/internal/protocol"
)

var errExhausted = errors.New("exhausted")

type mockEventSource struct {
	events chan protocol.Event
}

func newMockEventSource(events ...protocol.Event) *mockEventSource {
	ch := make(chan protocol.Event, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return &mockEventSource{events: ch}
}

func (m *mockEventSource) Next(ctx context.Context) (protocol.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case e, ok := <-m.events:
		if !ok {
			return nil, errExhausted
		}
		return e, nil
	}
}

func waitDone(t *testing.T, m *metrics.EventMetrics) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("events were not consumed")
	}
}

func Test_EventMetrics(t *testing.T) {
	t.Parallel()
	t.Run("counts events", func(t *testing.T) {
		t.Parallel()
		// Setup
		now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
		failure := protocol.Failure{Info: protocol.ErrorInfo{Domain: "SUSparkleErrorDomain", Code: 2001, Message: "feed error"}}
		source := newMockEventSource(
			protocol.CanCheckForUpdates{Value: false},
			protocol.UpdateCheck{State: protocol.Checking{}},
			failure,
			protocol.CanCheckForUpdates{Value: true},
		)

		// Exercise
		c := metrics.NewEventMetrics(t.Context(), source, metrics.WithClock(func() time.Time { return now }))
		waitDone(t, c)

		// Verify
		counts := map[string]int{
			protocol.EventTypeCanCheckForUpdates: 2,
			protocol.EventTypeUpdateCheck:        1,
			protocol.EventTypeFailure:            1,
		}
		expected := `
# HELP sparkly_events_total Number of events published by the bridge
# TYPE sparkly_events_total counter
`
		for _, typ := range protocol.EventTypes {
			expected += fmt.Sprintf("sparkly_events_total{type=\"%s\"} %d\n", typ, counts[typ])
		}
		expected += fmt.Sprintf(`
# HELP sparkly_failures_total Number of failures reported by the engine
# TYPE sparkly_failures_total counter
sparkly_failures_total{code="2001",domain="SUSparkleErrorDomain"} 1
# HELP sparkly_last_event_timestamp_seconds Timestamp of the last event published by the bridge in seconds
# TYPE sparkly_last_event_timestamp_seconds gauge
sparkly_last_event_timestamp_seconds %d
`, now.Unix())
		if err := testutil.CollectAndCompare(c, strings.NewReader(expected)); err != nil {
			t.Errorf("unexpected metrics output: %v", err)
		}
	})
	t.Run("no events", func(t *testing.T) {
		t.Parallel()
		// Setup
		source := newMockEventSource()

		// Exercise
		c := metrics.NewEventMetrics(t.Context(), source)
		waitDone(t, c)

		// Verify
		expected := `
# HELP sparkly_last_event_timestamp_seconds Timestamp of the last event published by the bridge in seconds
# TYPE sparkly_last_event_timestamp_seconds gauge
sparkly_last_event_timestamp_seconds 0
`
		if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "sparkly_last_event_timestamp_seconds"); err != nil {
			t.Errorf("unexpected metrics output: %v", err)
		}
		require.Equal(t, 0.0, testutil.ToFloat64(c.EventCounter(protocol.EventTypeFailure)))
	})
	t.Run("stops with context", func(t *testing.T) {
		t.Parallel()
		// Setup
		ctx, cancel := context.WithCancel(t.Context())
		source := &mockEventSource{events: make(chan protocol.Event)}
		c := metrics.NewEventMetrics(ctx, source)

		// Exercise
		cancel()

		// Verify
		waitDone(t, c)
	})
}
