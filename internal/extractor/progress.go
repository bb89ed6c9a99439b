package extractor

import "io"

// progressSteps is the number of progress reports over a whole archive.
const progressSteps = 10

// progressReader reports the fraction of the archive consumed, at most
// progressSteps times. The final report is left to the caller.
type progressReader struct {
	r      io.Reader
	size   int64
	read   int64
	last   int
	report func(completed float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if step := int(min(p.read, p.size) * progressSteps / p.size); step > p.last && step < progressSteps {
		p.last = step
		p.report(float64(step) / progressSteps)
	}
	return n, err
}
