package lifecycle

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pddg/sparkly/internal/logging"
	"github.com/pddg/sparkly/internal/protocol"
)

// Machine tracks the stage of the current update check.
//
// Every event derived from the engine passes through Apply, which returns the
// events that should actually be published. UpdateCheck events only move
// forward; the machine returns to idle on dismissal, failure or relaunch.
// A session starts only at Checking or Found.
//
// After Reset leaves a running session the engine may still be working on
// it. The machine is detached until the engine ends that session with its
// own dismissal or by allowing checks again, and drops the session's
// notifications meanwhile.
type Machine struct {
	logger    *slog.Logger
	newID     func() string
	mutex     sync.Mutex
	current   protocol.UpdateCheckState
	sessionID string
	// lastFailure is the failure that ended the previous session. An
	// identical failure reported before the next session is its echo.
	lastFailure *protocol.ErrorInfo
	// downloaded is set once the current session reached a download.
	downloaded bool
	detached   bool
}

func New(ctx context.Context, options ...Option) *Machine {
	m := &Machine{
		logger: logging.Component(ctx, "lifecycle"),
		newID:  uuid.NewString,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Apply feeds an engine-derived event into the machine.
func (m *Machine) Apply(event protocol.Event) []protocol.Event {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	switch e := event.(type) {
	case protocol.UpdateCheck:
		return m.transition(e.State)
	case protocol.Failure:
		if m.current == nil && m.lastFailure != nil && *m.lastFailure == e.Info {
			m.logger.Debug("dropped repeated failure", "error", e.Info.Error())
			return nil
		}
		m.logger.Info("update check failed", "session_id", m.sessionID, "stage", protocol.StageOf(m.current).String(), "error", e.Info.Error())
		m.endSession()
		m.attach()
		info := e.Info
		m.lastFailure = &info
		return []protocol.Event{e}
	case protocol.DismissInstallation:
		if m.detached {
			m.logger.Debug("engine dismissed a reset session")
			m.attach()
			return nil
		}
		if m.current == nil {
			m.logger.Debug("dropped dismissal while idle")
			return nil
		}
		m.logger.Info("update check dismissed", "session_id", m.sessionID, "stage", m.current.Stage().String())
		m.endSession()
		return []protocol.Event{e}
	case protocol.UpdateInstalledAndRelaunched:
		m.logger.Info("update installed", "session_id", m.sessionID, "relaunched", e.Relaunched)
		m.endSession()
		return []protocol.Event{e}
	case protocol.CanCheckForUpdates:
		if e.Value && m.detached {
			m.attach()
		}
		return []protocol.Event{e}
	default:
		return []protocol.Event{event}
	}
}

// must be called with mutex held
func (m *Machine) attach() {
	if m.detached {
		m.logger.Debug("update check attached")
	}
	m.detached = false
}

func (m *Machine) transition(next protocol.UpdateCheckState) []protocol.Event {
	if next == nil {
		m.logger.Error("received an update check without a state")
		return nil
	}
	if m.detached {
		m.logger.Debug("dropped notification of a reset session", "stage", next.Stage().String())
		return nil
	}
	if m.current == nil {
		if s := next.Stage(); s != protocol.StageChecking && s != protocol.StageFound {
			m.logger.Warn("dropped notification without a running check", "stage", s.String())
			return nil
		}
		m.startSession(next)
		return []protocol.Event{protocol.UpdateCheck{State: next}}
	}
	if protocol.SameState(m.current, next) {
		return nil
	}
	from, to := m.current.Stage(), next.Stage()
	if to < from {
		m.logger.Warn("rejected backward transition", "session_id", m.sessionID, "from", from.String(), "to", to.String())
		return nil
	}
	if to == from {
		if !m.acceptProgress(next) {
			return nil
		}
		m.current = next
		return []protocol.Event{protocol.UpdateCheck{State: next}}
	}

	var out []protocol.Event
	for _, s := range m.fillGap(next) {
		out = append(out, protocol.UpdateCheck{State: s})
	}
	if found, ok := next.(protocol.Found); ok && m.downloaded && found.State.Stage == protocol.UpdateStageNotDownloaded {
		m.logger.Warn("found update reports not downloaded after a download", "session_id", m.sessionID)
	}
	if to == protocol.StageDownloading {
		m.downloaded = true
	}
	m.logger.Debug("update check transition", "session_id", m.sessionID, "from", from.String(), "to", to.String())
	m.current = next
	return append(out, protocol.UpdateCheck{State: next})
}

// acceptProgress validates a transition within the same stage.
func (m *Machine) acceptProgress(next protocol.UpdateCheckState) bool {
	switch cur := m.current.(type) {
	case protocol.Found:
		return true
	case protocol.Downloading:
		n := next.(protocol.Downloading)
		if cur.Total != 0 && n.Total != cur.Total {
			m.logger.Warn("rejected download total change", "session_id", m.sessionID, "total", cur.Total, "new_total", n.Total)
			return false
		}
		if n.Completed < cur.Completed {
			m.logger.Warn("rejected download progress regression", "session_id", m.sessionID, "completed", cur.Completed, "new_completed", n.Completed)
			return false
		}
		return true
	case protocol.Extracting:
		n := next.(protocol.Extracting)
		if n.Completed < cur.Completed {
			m.logger.Warn("rejected extraction progress regression", "session_id", m.sessionID, "completed", cur.Completed, "new_completed", n.Completed)
			return false
		}
		return true
	default:
		return false
	}
}

// fillGap returns the notifications the engine skipped between the current
// state and next. Leaving a download always reports it as complete first and
// entering a later stage always passes through the start of extraction.
func (m *Machine) fillGap(next protocol.UpdateCheckState) []protocol.UpdateCheckState {
	d, ok := m.current.(protocol.Downloading)
	if !ok {
		return nil
	}
	var gap []protocol.UpdateCheckState
	switch {
	case d.Total > 0 && d.Completed < d.Total:
		gap = append(gap, protocol.Downloading{Total: d.Total, Completed: d.Total})
	case d.Total == 0 && d.Completed > 0:
		// The received bytes become the total of a download of unknown size.
		gap = append(gap, protocol.Downloading{Total: d.Completed, Completed: d.Completed})
	}
	switch n := next.(type) {
	case protocol.Extracting:
		if n.Completed > 0 {
			gap = append(gap, protocol.Extracting{Completed: 0})
		}
	default:
		gap = append(gap, protocol.Extracting{Completed: 0})
	}
	if len(gap) > 0 {
		m.logger.Debug("synthesized skipped transitions", "session_id", m.sessionID, "count", len(gap))
	}
	return gap
}

func (m *Machine) startSession(first protocol.UpdateCheckState) {
	m.current = first
	m.sessionID = m.newID()
	m.lastFailure = nil
	m.downloaded = first.Stage() == protocol.StageDownloading
	m.logger.Info("update check started", "session_id", m.sessionID, "stage", first.Stage().String())
}

// must be called with mutex held
func (m *Machine) endSession() {
	m.current = nil
	m.sessionID = ""
	m.downloaded = false
}

// Reset forces the machine back to idle and returns the state it left.
// Leaving a running session detaches the machine from the engine.
func (m *Machine) Reset() (protocol.UpdateCheckState, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	prev := m.current
	if prev != nil {
		m.logger.Info("update check reset", "session_id", m.sessionID, "stage", prev.Stage().String())
		m.detached = true
	}
	m.endSession()
	m.lastFailure = nil
	return prev, prev != nil
}

// ForgetFailure makes the next failure count as new even when it repeats the
// last one. Call it before asking the engine for new work.
func (m *Machine) ForgetFailure() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.lastFailure = nil
}

// Detached reports whether the engine may still be running a session that
// Reset left.
func (m *Machine) Detached() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.detached
}

// Current returns the state of the running check. ok is false while idle.
func (m *Machine) Current() (protocol.UpdateCheckState, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.current, m.current != nil
}

func (m *Machine) Stage() protocol.Stage {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return protocol.StageOf(m.current)
}

// SessionID identifies the running check. It is empty while idle.
func (m *Machine) SessionID() string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.sessionID
}
