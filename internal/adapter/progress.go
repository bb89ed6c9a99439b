package adapter

import (
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
)

// Progress tracks the byte counts of a single download.
type Progress struct {
	logger *slog.Logger

	mutex      sync.Mutex
	totalBytes uint64
	bytesRead  uint64
}

func NewProgress(logger *slog.Logger) *Progress {
	return &Progress{logger: logger}
}

// Reset starts a new download whose size is expected to be totalBytes.
// Zero means the size is unknown.
func (p *Progress) Reset(totalBytes uint64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.totalBytes = totalBytes
	p.bytesRead = 0
}

// SetTotal records the expected content length. The first non-zero total of
// a download is kept; later differing values are logged and ignored.
func (p *Progress) SetTotal(totalBytes uint64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.totalBytes == 0 {
		p.totalBytes = totalBytes
		return
	}
	if p.totalBytes != totalBytes {
		p.logger.Warn(
			"ignored expected content length change",
			"total_bytes", humanize.Bytes(p.totalBytes),
			"expected_bytes", humanize.Bytes(totalBytes),
		)
	}
}

// Add records n received bytes.
func (p *Progress) Add(n uint64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.bytesRead += n
	if p.totalBytes > 0 {
		p.logger.Debug(
			"download progress",
			"bytes_read", humanize.Bytes(p.bytesRead),
			"total_bytes", humanize.Bytes(p.totalBytes),
			"percentage", float64(min(p.bytesRead, p.totalBytes))/float64(p.totalBytes)*100,
		)
	}
}

// Snapshot returns the total and the received bytes. Received bytes never
// exceed a known total.
func (p *Progress) Snapshot() (total float64, completed float64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	read := p.bytesRead
	if p.totalBytes > 0 {
		read = min(read, p.totalBytes)
	}
	return float64(p.totalBytes), float64(read)
}
