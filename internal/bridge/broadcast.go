package bridge

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pddg/sparkly/internal/protocol"
)

type broadcaster struct {
	mutex  sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
	limit  int
}

func newBroadcaster(limit int) *broadcaster {
	return &broadcaster{
		subs:  map[*Subscription]struct{}{},
		limit: limit,
	}
}

func (b *broadcaster) subscribe() *Subscription {
	s := &Subscription{
		id:     uuid.NewString(),
		owner:  b,
		signal: make(chan struct{}, 1),
		limit:  b.limit,
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		s.closed = true
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

func (b *broadcaster) publish(event protocol.Event) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for s := range b.subs {
		s.push(event)
	}
}

func (b *broadcaster) remove(s *Subscription) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.subs, s)
}

func (b *broadcaster) count() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.subs)
}

func (b *broadcaster) close() {
	b.mutex.Lock()
	subs := b.subs
	b.subs = map[*Subscription]struct{}{}
	b.closed = true
	b.mutex.Unlock()
	for s := range subs {
		s.shutdown()
	}
}

// Subscription receives every event published while it is open, in
// publication order. Publishing never waits for a slow subscriber.
type Subscription struct {
	id     string
	owner  *broadcaster
	signal chan struct{}
	limit  int

	mutex   sync.Mutex
	queue   []protocol.Event
	closed  bool
	dropped int
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() string {
	return s.id
}

func (s *Subscription) push(event protocol.Event) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return
	}
	if s.limit > 0 && len(s.queue) >= s.limit {
		s.dropOldestFlag()
	}
	s.queue = append(s.queue, event)
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// dropOldestFlag makes room by dropping the oldest can-check flag. Other
// events are never dropped, so a full queue may grow past its limit.
// must be called with mutex held
func (s *Subscription) dropOldestFlag() {
	for i, e := range s.queue {
		if _, ok := e.(protocol.CanCheckForUpdates); ok {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			s.dropped++
			return
		}
	}
}

// Next blocks until an event is available, the subscription is closed or
// ctx is done. Queued events are still delivered after close.
func (s *Subscription) Next(ctx context.Context) (protocol.Event, error) {
	for {
		s.mutex.Lock()
		if len(s.queue) > 0 {
			e := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mutex.Unlock()
			return e, nil
		}
		closed := s.closed
		s.mutex.Unlock()
		if closed {
			return nil, ErrClosed
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.signal:
		}
	}
}

// Pending removes and returns every queued event without blocking.
func (s *Subscription) Pending() []protocol.Event {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := s.queue
	s.queue = nil
	return out
}

// Dropped returns the number of can-check flags dropped from a full queue.
func (s *Subscription) Dropped() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.dropped
}

// Close unsubscribes. Events already queued can still be read.
func (s *Subscription) Close() {
	s.owner.remove(s)
	s.shutdown()
}

func (s *Subscription) shutdown() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.signal)
}
