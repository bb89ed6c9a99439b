package callback

import (
	"sync"

	"github.com/pddg/sparkly/internal/protocol"
)

// Kind identifies the continuation stored in the registry.
type Kind int

const (
	KindNone Kind = iota
	KindCancel
	KindAcknowledge
	KindReply
	KindPermission
)

var Kinds = []Kind{
	KindNone,
	KindCancel,
	KindAcknowledge,
	KindReply,
	KindPermission,
}

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCancel:
		return "cancel"
	case KindAcknowledge:
		return "acknowledge"
	case KindReply:
		return "reply"
	case KindPermission:
		return "permission"
	default:
		return "unknown"
	}
}

// Registry holds at most one pending engine continuation.
//
// Registering a continuation discards the previous one without running it.
// Invoking a continuation of the wrong kind is a no-op that keeps the slot.
// A matching continuation is removed under the lock and run after the lock is
// released, so it may call back into the engine and register the next one.
type Registry struct {
	mu         sync.Mutex
	kind       Kind
	cancel     func()
	ack        func()
	reply      func(protocol.Choice)
	permission func(protocol.PermissionResponse)
	closed     bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) RegisterCancel(fn func()) {
	r.store(KindCancel, func() { r.cancel = fn })
}

func (r *Registry) RegisterAcknowledge(fn func()) {
	r.store(KindAcknowledge, func() { r.ack = fn })
}

func (r *Registry) RegisterReply(fn func(protocol.Choice)) {
	r.store(KindReply, func() { r.reply = fn })
}

func (r *Registry) RegisterPermission(fn func(protocol.PermissionResponse)) {
	r.store(KindPermission, func() { r.permission = fn })
}

func (r *Registry) store(kind Kind, set func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.reset()
	r.kind = kind
	set()
}

// InvokeCancel runs the pending cancel continuation.
func (r *Registry) InvokeCancel() bool {
	r.mu.Lock()
	if r.kind != KindCancel {
		r.mu.Unlock()
		return false
	}
	fn := r.cancel
	r.reset()
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}

// InvokeAcknowledge runs the pending acknowledge continuation.
func (r *Registry) InvokeAcknowledge() bool {
	r.mu.Lock()
	if r.kind != KindAcknowledge {
		r.mu.Unlock()
		return false
	}
	fn := r.ack
	r.reset()
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}

// InvokeReply runs the pending reply continuation with the given choice.
func (r *Registry) InvokeReply(choice protocol.Choice) bool {
	r.mu.Lock()
	if r.kind != KindReply {
		r.mu.Unlock()
		return false
	}
	fn := r.reply
	r.reset()
	r.mu.Unlock()
	if fn != nil {
		fn(choice)
	}
	return true
}

// InvokePermission runs the pending permission continuation.
func (r *Registry) InvokePermission(resp protocol.PermissionResponse) bool {
	r.mu.Lock()
	if r.kind != KindPermission {
		r.mu.Unlock()
		return false
	}
	fn := r.permission
	r.reset()
	r.mu.Unlock()
	if fn != nil {
		fn(resp)
	}
	return true
}

// Kind returns the kind of the pending continuation.
func (r *Registry) Kind() Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kind
}

// Clear drops the pending continuation without running it.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

// Close clears the registry. Continuations registered afterwards are discarded.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
	r.closed = true
}

// must be called with mu held
func (r *Registry) reset() {
	r.kind = KindNone
	r.cancel = nil
	r.ack = nil
	r.reply = nil
	r.permission = nil
}
