package extractor

type ExtractOption func(*runtimeOption)

// Uncompressed tells that the archive is a plain tar archive.
func Uncompressed() ExtractOption {
	return func(o *runtimeOption) {
		o.uncompressed = true
	}
}

// WithProgress reports the extraction progress in the range (0, 1] while
// the archive of the given size is read.
func WithProgress(size int64, report func(completed float64)) ExtractOption {
	return func(o *runtimeOption) {
		o.size = size
		o.progress = report
	}
}
