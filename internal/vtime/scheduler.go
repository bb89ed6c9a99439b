package vtime

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// DefaultTick is the spacing of ScheduleSequentially.
const DefaultTick = time.Second

// Task is a unit of work run by the scheduler.
type Task func()

type entry struct {
	due  time.Duration
	seq  uint64
	task Task
}

// Scheduler is a logical clock. Scheduled tasks run only inside Advance or
// Run, on the calling goroutine, ordered by due time and then by the order
// they were scheduled in.
type Scheduler struct {
	tick time.Duration

	mutex sync.Mutex
	now   time.Duration
	seq   uint64
	queue []entry
}

func New(options ...Option) *Scheduler {
	s := &Scheduler{
		tick: DefaultTick,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Now returns the elapsed virtual time since the scheduler was created.
func (s *Scheduler) Now() time.Duration {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.now
}

// Schedule runs the task at the current virtual time on the next Advance.
func (s *Scheduler) Schedule(task Task) {
	s.ScheduleAfter(0, task)
}

// ScheduleAfter runs the task once the clock has advanced by d.
// A negative d is treated as zero.
func (s *Scheduler) ScheduleAfter(d time.Duration, task Task) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.push(max(d, 0), task)
}

// ScheduleSequentially schedules the tasks one tick apart, the first one at
// the current virtual time.
func (s *Scheduler) ScheduleSequentially(tasks ...Task) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i, task := range tasks {
		s.push(time.Duration(i)*s.tick, task)
	}
}

// must be called with mutex held
func (s *Scheduler) push(d time.Duration, task Task) {
	s.seq++
	s.queue = append(s.queue, entry{due: s.now + d, seq: s.seq, task: task})
}

// Advance moves the clock forward by d and runs every task that becomes due,
// including tasks scheduled by other tasks within the window.
func (s *Scheduler) Advance(d time.Duration) {
	s.mutex.Lock()
	target := s.now + max(d, 0)
	s.mutex.Unlock()
	s.runUntil(target)
}

// Run executes every scheduled task, advancing the clock as needed.
func (s *Scheduler) Run() {
	for {
		s.mutex.Lock()
		next, ok := s.earliest()
		s.mutex.Unlock()
		if !ok {
			return
		}
		s.runUntil(next.due)
	}
}

// Pending returns the number of tasks waiting to run.
func (s *Scheduler) Pending() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.queue)
}

func (s *Scheduler) runUntil(target time.Duration) {
	for {
		s.mutex.Lock()
		next, ok := s.earliest()
		if !ok || next.due > target {
			if target > s.now {
				s.now = target
			}
			s.mutex.Unlock()
			return
		}
		s.queue = slices.DeleteFunc(s.queue, func(e entry) bool { return e.seq == next.seq })
		if next.due > s.now {
			s.now = next.due
		}
		s.mutex.Unlock()
		next.task()
	}
}

// must be called with mutex held
func (s *Scheduler) earliest() (entry, bool) {
	if len(s.queue) == 0 {
		return entry{}, false
	}
	return slices.MinFunc(s.queue, func(a, b entry) int {
		return cmp.Or(cmp.Compare(a.due, b.due), cmp.Compare(a.seq, b.seq))
	}), true
}
