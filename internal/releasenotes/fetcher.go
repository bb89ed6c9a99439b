package releasenotes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fujiwara/shapeio"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/pddg/sparkly/internal/engine"
	"github.com/pddg/sparkly/internal/logging"
)

// ErrTooLarge is returned for documents larger than the configured maximum.
var ErrTooLarge = errors.New("release notes too large")

// Fetcher downloads release notes over HTTP.
type Fetcher struct {
	client  *retryablehttp.Client
	headers http.Header

	// limitDownloadBytesPerSec sets the download speed limit in bytes per second.
	// Use WithDownloadSpeedLimit option to set this value.
	// Default is math.MaxFloat64.
	limitDownloadBytesPerSec float64

	// maxSize is the largest document accepted.
	// Use WithMaxSize option to set this value.
	maxSize int64
}

func New(httpClient *http.Client, options ...Option) *Fetcher {
	client := retryablehttp.NewClient()
	client.HTTPClient = httpClient
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.Backoff = retryablehttp.LinearJitterBackoff
	// Disable the default logger.
	client.Logger = nil
	client.RequestLogHook = func(l retryablehttp.Logger, r *http.Request, i int) {
		logger := logging.FromContext(r.Context())
		logger.DebugContext(r.Context(), "release notes request", "method", r.Method, "url", r.URL.String(), "attempt", i)
	}
	client.ResponseLogHook = func(l retryablehttp.Logger, r *http.Response) {
		ctx := r.Request.Context()
		logger := logging.FromContext(ctx)
		logger.DebugContext(ctx, "release notes response", "status", r.Status, "content_length", humanize.Bytes(uint64(max(r.ContentLength, 0))))
	}

	f := &Fetcher{
		client:                   client,
		headers:                  http.Header{},
		limitDownloadBytesPerSec: math.MaxFloat64,
		maxSize:                  DefaultMaxSize,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Fetch downloads the document at url. The MIME type and the text encoding
// are taken from the Content-Type of the response.
func (f *Fetcher) Fetch(ctx context.Context, url string) (engine.DownloadData, error) {
	logger := logging.FromContext(ctx)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return engine.DownloadData{}, fmt.Errorf("releasenotes.Fetcher.Fetch: failed to create request: %w", err)
	}
	for k, v := range f.headers {
		req.Header[k] = v
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return engine.DownloadData{}, fmt.Errorf("releasenotes.Fetcher.Fetch: failed to request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return engine.DownloadData{}, fmt.Errorf("releasenotes.Fetcher.Fetch: failed to download: %s", resp.Status)
	}
	if resp.ContentLength > f.maxSize {
		return engine.DownloadData{}, fmt.Errorf("releasenotes.Fetcher.Fetch: %w: %s", ErrTooLarge, humanize.Bytes(uint64(resp.ContentLength)))
	}

	// Limit the download speed.
	body := shapeio.NewReaderWithContext(resp.Body, ctx)
	body.SetRateLimit(f.limitDownloadBytesPerSec)
	data, err := io.ReadAll(io.LimitReader(body, f.maxSize+1))
	if err != nil {
		return engine.DownloadData{}, fmt.Errorf("releasenotes.Fetcher.Fetch: failed to read body: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return engine.DownloadData{}, fmt.Errorf("releasenotes.Fetcher.Fetch: %w: more than %s", ErrTooLarge, humanize.Bytes(uint64(f.maxSize)))
	}

	result := engine.DownloadData{
		Data: data,
		URL:  resp.Request.URL.String(),
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, params, err := mime.ParseMediaType(ct)
		if err != nil {
			logger.WarnContext(ctx, "invalid content type of release notes", "content_type", ct, "error", err)
		} else {
			result.MIMEType = mediaType
			result.TextEncodingName = params["charset"]
		}
	}
	logger.InfoContext(ctx, "release notes downloaded", "url", result.URL, "size", humanize.Bytes(uint64(len(data))), "mime_type", result.MIMEType)
	return result, nil
}
