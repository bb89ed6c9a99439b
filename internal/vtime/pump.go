package vtime

import (
	"context"
	"time"
)

// Pump advances the clock by the real time elapsed, checking every interval,
// until ctx is done. It lets code written against virtual time run against
// the wall clock.
func (s *Scheduler) Pump(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Advance(now.Sub(last))
			last = now
		}
	}
}
