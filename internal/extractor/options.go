package extractor

type Option func(*Extractor)

// WithExtractSpeedLimit sets the extraction speed limit in bytes per second.
// The default is math.MaxFloat64.
func WithExtractSpeedLimit(limit float64) Option {
	return func(x *Extractor) {
		x.extractLimitBytesPerSec = limit
	}
}
