package vtime

import "time"

type Option func(*Scheduler)

// WithTick sets the spacing used by ScheduleSequentially.
// The default is one second.
func WithTick(tick time.Duration) Option {
	return func(s *Scheduler) {
		s.tick = tick
	}
}
