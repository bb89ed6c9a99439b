package adapter

import "github.com/pddg/sparkly/internal/protocol"

// Publisher receives every event produced by the adapter.
type Publisher interface {
	Publish(event protocol.Event)
}

type PublisherFunc func(event protocol.Event)

func (f PublisherFunc) Publish(event protocol.Event) {
	f(event)
}

// Registry stores the continuation of the interactive stage.
type Registry interface {
	RegisterCancel(fn func())
	RegisterAcknowledge(fn func())
	RegisterReply(fn func(protocol.Choice))
	RegisterPermission(fn func(protocol.PermissionResponse))
	Clear()
}
