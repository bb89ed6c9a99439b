package metrics

import "time"

type EventMetricsOption func(*EventMetrics)

// WithClock sets the clock used for the last event timestamp.
// This is used to test the metrics.
func WithClock(now func() time.Time) EventMetricsOption {
	return func(m *EventMetrics) {
		m.now = now
	}
}
