package releasenotes

import "time"

// DefaultMaxSize bounds the size of a release notes document.
const DefaultMaxSize = 4 << 20

type Option func(*Fetcher)

// WithDownloadSpeedLimit sets the download speed limit in bytes per second.
// The default is math.MaxFloat64.
func WithDownloadSpeedLimit(limit float64) Option {
	return func(f *Fetcher) {
		f.limitDownloadBytesPerSec = limit
	}
}

// WithMaxSize sets the largest document accepted, in bytes.
// The default is DefaultMaxSize.
func WithMaxSize(size int64) Option {
	return func(f *Fetcher) {
		f.maxSize = size
	}
}

// WithRetry sets how often and how long a failed request is retried.
// The default is 3 retries waiting between 1 and 10 seconds.
func WithRetry(retries int, waitMin, waitMax time.Duration) Option {
	return func(f *Fetcher) {
		f.client.RetryMax = retries
		f.client.RetryWaitMin = waitMin
		f.client.RetryWaitMax = waitMax
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		for k, v := range headers {
			f.headers.Set(k, v)
		}
	}
}
