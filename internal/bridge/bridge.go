package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/pddg/sparkly/internal/adapter"
	"github.com/pddg/sparkly/internal/callback"
	"github.com/pddg/sparkly/internal/engine"
	"github.com/pddg/sparkly/internal/lifecycle"
	"github.com/pddg/sparkly/internal/logging"
	"github.com/pddg/sparkly/internal/policy"
	"github.com/pddg/sparkly/internal/protocol"
	"github.com/pddg/sparkly/internal/settings"
)

var ErrClosed = errors.New("bridge closed")

// Bridge turns the callback driven engine into an action/event protocol.
//
// Actions are sent with Send and never return a result. Their consequences,
// and everything the engine reports, are delivered to every open
// Subscription. A Bridge owns one engine and is disposed with Close or by
// cancelling the context given to New.
type Bridge struct {
	logger   *slog.Logger
	engine   engine.Engine
	registry *callback.Registry
	machine  *lifecycle.Machine
	adapter  *adapter.Adapter
	events   *broadcaster
	dispatch *dispatcher

	policy           engine.Policy
	store            settings.Store
	synchronous      bool
	subscriberBuffer int
	lifecycleOptions []lifecycle.Option

	// publishMutex serializes state updates with their emission so every
	// subscriber observes events in the order the machine produced them.
	publishMutex sync.Mutex
	flagKnown    bool
	canCheck     bool
	// checking is set while a forwarded check has not been answered by the
	// engine.
	checking bool

	mutex   sync.Mutex
	started bool
	closed  bool
}

func New(ctx context.Context, eng engine.Engine, options ...Option) *Bridge {
	b := &Bridge{
		logger:   logging.Component(ctx, "bridge"),
		engine:   eng,
		registry: callback.NewRegistry(),
		policy:   policy.Default(),
	}
	for _, option := range options {
		option(b)
	}
	b.machine = lifecycle.New(ctx, b.lifecycleOptions...)
	b.events = newBroadcaster(b.subscriberBuffer)
	b.adapter = adapter.New(ctx, b.registry, adapter.PublisherFunc(b.publish), b.policy)
	if !b.synchronous {
		b.dispatch = newDispatcher(b.handle)
	}
	context.AfterFunc(ctx, b.Close)
	return b
}

// Send queues an action. It never blocks and is ignored after Close.
func (b *Bridge) Send(action protocol.Action) {
	if action == nil {
		return
	}
	b.mutex.Lock()
	closed := b.closed
	b.mutex.Unlock()
	if closed {
		b.logger.Debug("ignored action on closed bridge", "action", action.Type())
		return
	}
	if b.synchronous {
		b.handle(action)
		return
	}
	b.dispatch.enqueue(action)
}

// Subscribe opens a new event subscription. Events published before the call
// are not replayed; use CanCheckForUpdates and Status for the current state.
func (b *Bridge) Subscribe() *Subscription {
	return b.events.subscribe()
}

// CanCheckForUpdates returns the last published can-check flag.
func (b *Bridge) CanCheckForUpdates() bool {
	b.publishMutex.Lock()
	defer b.publishMutex.Unlock()
	return b.canCheck
}

// Settings returns the stored settings, or the defaults without a store.
func (b *Bridge) Settings() protocol.Settings {
	if b.store == nil {
		return protocol.DefaultSettings()
	}
	return settings.Load(b.store)
}

// Close clears the pending continuation and closes every subscription.
// It is safe to call more than once.
func (b *Bridge) Close() {
	b.mutex.Lock()
	if b.closed {
		b.mutex.Unlock()
		return
	}
	b.closed = true
	b.mutex.Unlock()
	if b.dispatch != nil {
		b.dispatch.stop()
	}
	b.registry.Close()
	b.events.close()
	b.logger.Info("bridge closed")
}

// Done is closed once the dispatcher has stopped. It is nil with
// synchronous dispatch.
func (b *Bridge) Done() <-chan struct{} {
	if b.dispatch == nil {
		return nil
	}
	return b.dispatch.done
}

// publish feeds an engine event through the state machine and emits the result.
func (b *Bridge) publish(event protocol.Event) {
	b.publishMutex.Lock()
	defer b.publishMutex.Unlock()
	switch e := event.(type) {
	case protocol.UpdateCheck, protocol.Failure, protocol.DismissInstallation:
		b.checking = false
	case protocol.CanCheckForUpdates:
		if e.Value {
			b.checking = false
		}
	}
	for _, e := range b.machine.Apply(event) {
		b.emitLocked(e)
	}
}

// beginCheck publishes that checks are disabled and marks a check in flight.
func (b *Bridge) beginCheck() {
	b.publishMutex.Lock()
	defer b.publishMutex.Unlock()
	b.checking = true
	b.emitLocked(protocol.CanCheckForUpdates{Value: false})
}

func (b *Bridge) isChecking() bool {
	b.publishMutex.Lock()
	defer b.publishMutex.Unlock()
	return b.checking
}

// must be called with publishMutex held
func (b *Bridge) emitLocked(event protocol.Event) {
	if f, ok := event.(protocol.CanCheckForUpdates); ok {
		if b.flagKnown && b.canCheck == f.Value {
			return
		}
		b.flagKnown = true
		b.canCheck = f.Value
	}
	b.logger.Debug("event published", "event", event.Type())
	b.events.publish(event)
}

func (b *Bridge) setFlag(value bool) {
	b.publishMutex.Lock()
	defer b.publishMutex.Unlock()
	b.emitLocked(protocol.CanCheckForUpdates{Value: value})
}

// dismiss forces the machine back to idle and reports whether a check was running.
func (b *Bridge) dismiss() bool {
	b.publishMutex.Lock()
	defer b.publishMutex.Unlock()
	if _, ok := b.machine.Reset(); !ok {
		return false
	}
	b.emitLocked(protocol.DismissInstallation{})
	return true
}
