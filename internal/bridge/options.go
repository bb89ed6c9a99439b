package bridge

import (
	"github.com/pddg/sparkly/internal/engine"
	"github.com/pddg/sparkly/internal/lifecycle"
	"github.com/pddg/sparkly/internal/settings"
)

type Option func(*Bridge)

// WithPolicy sets the developer policy answered to the engine.
// The default is policy.Default.
func WithPolicy(p engine.Policy) Option {
	return func(b *Bridge) {
		b.policy = p
	}
}

// WithSettingsStore persists settings sent with UpdateSettings and applies the
// stored settings to the engine on start.
func WithSettingsStore(store settings.Store) Option {
	return func(b *Bridge) {
		b.store = store
	}
}

// WithSynchronousDispatch handles actions on the goroutine calling Send.
func WithSynchronousDispatch() Option {
	return func(b *Bridge) {
		b.synchronous = true
	}
}

// WithSubscriberBuffer bounds the queue of each subscription. When a queue is
// full its oldest can-check flag is dropped. Zero means unbounded, which is
// the default.
func WithSubscriberBuffer(n int) Option {
	return func(b *Bridge) {
		b.subscriberBuffer = n
	}
}

// WithLifecycleOptions configures the lifecycle state machine.
func WithLifecycleOptions(options ...lifecycle.Option) Option {
	return func(b *Bridge) {
		b.lifecycleOptions = append(b.lifecycleOptions, options...)
	}
}
