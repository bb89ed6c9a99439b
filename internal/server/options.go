package server

import "github.com/prometheus/client_golang/prometheus"

type serverOptions struct {
	gatherer prometheus.Gatherer
}

type Option func(*serverOptions)

// WithGatherer sets the metrics served on /metrics.
// The default is prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *serverOptions) {
		o.gatherer = g
	}
}
