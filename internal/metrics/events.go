package metrics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pddg/sparkly/internal/logging"
	"github.com/pddg/sparkly/internal/protocol"
)

type EventSource interface {
	Next(ctx context.Context) (protocol.Event, error)
}

// EventMetrics is a prometheus.Collector counting the events read from an
// EventSource. It reads until the source fails or ctx is done.
type EventMetrics struct {
	events        *prometheus.CounterVec
	failures      *prometheus.CounterVec
	lastEventDesc *prometheus.Desc
	done          chan struct{}

	mutex     sync.Mutex
	lastEvent time.Time

	// Optional fields

	// now returns the current time. It is time.Now by default.
	now func() time.Time
}

func NewEventMetrics(
	ctx context.Context,
	source EventSource,
	options ...EventMetricsOption,
) *EventMetrics {
	m := &EventMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sparkly_events_total",
			Help: "Number of events published by the bridge",
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sparkly_failures_total",
			Help: "Number of failures reported by the engine",
		}, []string{"domain", "code"}),
		lastEventDesc: prometheus.NewDesc(
			"sparkly_last_event_timestamp_seconds",
			"Timestamp of the last event published by the bridge in seconds",
			nil,
			nil,
		),
		done: make(chan struct{}),
		now:  time.Now,
	}
	for _, option := range options {
		option(m)
	}
	for _, t := range protocol.EventTypes {
		m.events.WithLabelValues(t)
	}
	go m.run(ctx, source)
	return m
}

func (m *EventMetrics) run(ctx context.Context, source EventSource) {
	defer close(m.done)
	logger := logging.FromContext(ctx)
	for {
		event, err := source.Next(ctx)
		if err != nil {
			logger.DebugContext(ctx, "stopped counting events", "reason", err)
			return
		}
		m.events.WithLabelValues(event.Type()).Inc()
		if f, ok := event.(protocol.Failure); ok {
			m.failures.WithLabelValues(f.Info.Domain, strconv.Itoa(f.Info.Code)).Inc()
		}
		m.mutex.Lock()
		m.lastEvent = m.now()
		m.mutex.Unlock()
	}
}

// EventCounter returns the counter of events of the given type.
func (m *EventMetrics) EventCounter(eventType string) prometheus.Counter {
	return m.events.WithLabelValues(eventType)
}

// Done is closed once the source is exhausted.
func (m *EventMetrics) Done() <-chan struct{} {
	return m.done
}

func (m *EventMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.events.Describe(ch)
	m.failures.Describe(ch)
	ch <- m.lastEventDesc
}

func (m *EventMetrics) Collect(ch chan<- prometheus.Metric) {
	m.events.Collect(ch)
	m.failures.Collect(ch)
	m.mutex.Lock()
	lastEvent := m.lastEvent
	m.mutex.Unlock()
	var ts float64
	if !lastEvent.IsZero() {
		ts = float64(lastEvent.Unix())
	}
	ch <- prometheus.MustNewConstMetric(m.lastEventDesc, prometheus.GaugeValue, ts)
}
