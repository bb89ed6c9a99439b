package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pddg/sparkly/internal/bridge"
	"github.com/pddg/sparkly/internal/callback"
	"github.com/pddg/sparkly/internal/protocol"
)

type StatusSource interface {
	Status() bridge.Status
}

// StatusMetrics is a prometheus.Collector reporting the state of a bridge
// at collection time.
type StatusMetrics struct {
	source StatusSource

	// metrics
	stageInfoDesc       *prometheus.Desc
	canCheckDesc        *prometheus.Desc
	pendingCallbackDesc *prometheus.Desc
	subscribersDesc     *prometheus.Desc
}

func NewStatusMetrics(source StatusSource) *StatusMetrics {
	return &StatusMetrics{
		source: source,
		stageInfoDesc: prometheus.NewDesc(
			"sparkly_update_check_stage_info",
			"Current stage of the update check",
			[]string{"stage"},
			nil,
		),
		canCheckDesc: prometheus.NewDesc(
			"sparkly_can_check_for_updates",
			"Whether a user initiated update check can be started",
			nil,
			nil,
		),
		pendingCallbackDesc: prometheus.NewDesc(
			"sparkly_pending_callback_info",
			"Kind of the continuation waiting for a consumer decision",
			[]string{"kind"},
			nil,
		),
		subscribersDesc: prometheus.NewDesc(
			"sparkly_event_subscribers",
			"Number of open event subscriptions",
			nil,
			nil,
		),
	}
}

func (m *StatusMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.stageInfoDesc
	ch <- m.canCheckDesc
	ch <- m.pendingCallbackDesc
	ch <- m.subscribersDesc
}

func (m *StatusMetrics) Collect(ch chan<- prometheus.Metric) {
	status := m.source.Status()
	for _, stage := range protocol.Stages {
		ch <- prometheus.MustNewConstMetric(
			m.stageInfoDesc,
			prometheus.GaugeValue,
			boolValue(stage == status.Stage),
			stage.String(),
		)
	}
	ch <- prometheus.MustNewConstMetric(
		m.canCheckDesc,
		prometheus.GaugeValue,
		boolValue(status.CanCheckForUpdates),
	)
	for _, kind := range callback.Kinds {
		ch <- prometheus.MustNewConstMetric(
			m.pendingCallbackDesc,
			prometheus.GaugeValue,
			boolValue(kind == status.PendingCallback),
			kind.String(),
		)
	}
	ch <- prometheus.MustNewConstMetric(
		m.subscribersDesc,
		prometheus.GaugeValue,
		float64(status.Subscribers),
	)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
