package bridge

import (
	"sync"

	"github.com/pddg/sparkly/internal/protocol"
)

// dispatcher runs actions one at a time in the order they were sent.
type dispatcher struct {
	handle func(protocol.Action)

	mutex   sync.Mutex
	queue   []protocol.Action
	signal  chan struct{}
	stopped bool
	done    chan struct{}
}

func newDispatcher(handle func(protocol.Action)) *dispatcher {
	d := &dispatcher{
		handle: handle,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) enqueue(action protocol.Action) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return false
	}
	d.queue = append(d.queue, action)
	select {
	case d.signal <- struct{}{}:
	default:
	}
	return true
}

func (d *dispatcher) run() {
	defer close(d.done)
	for range d.signal {
		for {
			d.mutex.Lock()
			if d.stopped || len(d.queue) == 0 {
				d.mutex.Unlock()
				break
			}
			action := d.queue[0]
			d.queue[0] = nil
			d.queue = d.queue[1:]
			d.mutex.Unlock()
			d.handle(action)
		}
	}
}

// stop discards queued actions. The action being handled, if any, completes.
func (d *dispatcher) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	d.queue = nil
	close(d.signal)
}
