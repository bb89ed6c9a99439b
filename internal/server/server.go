package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIServer struct {
	mux *http.ServeMux
}

func NewAPIServer(
	ctx context.Context,
	b Bridge,
	options ...Option,
) *APIServer {
	opts := &serverOptions{
		gatherer: prometheus.DefaultGatherer,
	}
	for _, option := range options {
		option(opts)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(opts.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("GET /status", NewStatusHandler(b))
	mux.Handle("GET /settings", NewSettingsHandler(b))
	mux.Handle("POST /actions", NewActionHandler(ctx, b))
	mux.Handle("GET /events", NewEventStreamHandler(ctx, b))

	return &APIServer{
		mux: mux,
	}
}

func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
