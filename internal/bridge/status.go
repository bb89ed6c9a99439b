package bridge

import (
	"github.com/pddg/sparkly/internal/callback"
	"github.com/pddg/sparkly/internal/protocol"
)

// Status is a snapshot of the bridge state.
type Status struct {
	Started            bool
	Stage              protocol.Stage
	State              protocol.UpdateCheckState
	CanCheckForUpdates bool
	PendingCallback    callback.Kind
	SessionID          string
	Subscribers        int
}

func (b *Bridge) Status() Status {
	state, _ := b.machine.Current()
	return Status{
		Started:            b.isStarted(),
		Stage:              protocol.StageOf(state),
		State:              state,
		CanCheckForUpdates: b.CanCheckForUpdates(),
		PendingCallback:    b.registry.Kind(),
		SessionID:          b.machine.SessionID(),
		Subscribers:        b.events.count(),
	}
}
