package logging

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
)

type responseWriteInterceptor struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseWriteInterceptor) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Hijack lets websocket upgrades pass through the access log.
func (r *responseWriteInterceptor) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("logging: underlying ResponseWriter does not implement http.Hijacker")
	}
	r.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *responseWriteInterceptor) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type AccessLogMiddleware struct {
	logger             *slog.Logger
	ignorePathPrefixes []string
}

type AccessLogOption func(*AccessLogMiddleware)

// WithIgnorePathPrefixes skips access logs for requests under the given prefixes.
func WithIgnorePathPrefixes(prefixes ...string) AccessLogOption {
	return func(mw *AccessLogMiddleware) {
		mw.ignorePathPrefixes = append(mw.ignorePathPrefixes, prefixes...)
	}
}

func NewAccessLogMiddleware(logger *slog.Logger, opts ...AccessLogOption) *AccessLogMiddleware {
	mw := &AccessLogMiddleware{
		logger: logger,
	}
	for _, opt := range opts {
		opt(mw)
	}
	return mw
}

func (mw *AccessLogMiddleware) Use(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mw.isIgnorePath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		writer := &responseWriteInterceptor{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(writer, r)
		mw.logger.InfoContext(
			r.Context(),
			"access log",
			"topic", "accesslog",
			"method", r.Method,
			"url", r.URL.String(),
			"status", writer.statusCode,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)
	}
}

func (mw *AccessLogMiddleware) isIgnorePath(path string) bool {
	return slices.ContainsFunc(mw.ignorePathPrefixes, func(prefix string) bool {
		return strings.HasPrefix(path, prefix)
	})
}
