package server

import (
	"github.com/pddg/sparkly/internal/bridge"
	"github.com/pddg/sparkly/internal/protocol"
)

type Bridge interface {
	Send(action protocol.Action)
	Subscribe() *bridge.Subscription
	Status() bridge.Status
	Settings() protocol.Settings
}
