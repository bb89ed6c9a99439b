package bridge

import (
	"github.com/pddg/sparkly/internal/adapter"
	"github.com/pddg/sparkly/internal/protocol"
	"github.com/pddg/sparkly/internal/settings"
)

func (b *Bridge) handle(action protocol.Action) {
	b.logger.Debug("action received", "action", action.Type())
	switch a := action.(type) {
	case protocol.StartEngine:
		b.startEngine()
	case protocol.CheckForUpdates:
		b.checkForUpdates()
	case protocol.Cancel:
		b.cancel()
	case protocol.Reply:
		b.reply(a.Choice)
	case protocol.SetPermission:
		if !b.registry.InvokePermission(a.Response()) {
			b.ignored(action, "no pending permission request")
		}
	case protocol.SetHTTPHeaders:
		b.engine.SetHTTPHeaders(adapter.NativeHeaders(a.Headers))
	case protocol.UpdateSettings:
		b.updateSettings(a.Settings)
	default:
		b.ignored(action, "unknown action")
	}
}

func (b *Bridge) ignored(action protocol.Action, reason string) {
	b.logger.Debug("ignored action", "action", action.Type(), "reason", reason)
}

func (b *Bridge) startEngine() {
	b.mutex.Lock()
	if b.started {
		b.mutex.Unlock()
		b.logger.Debug("ignored action", "action", protocol.ActionTypeStartEngine, "reason", "engine already started")
		return
	}
	b.started = true
	b.mutex.Unlock()

	if b.store != nil {
		b.engine.ApplySettings(adapter.NativeSettings(settings.Load(b.store)))
	}
	b.machine.ForgetFailure()
	if err := b.engine.Start(b.adapter, b.adapter); err != nil {
		b.logger.Error("failed to start engine", "error", err)
		b.mutex.Lock()
		b.started = false
		b.mutex.Unlock()
		b.publish(protocol.Failure{Info: adapter.ErrorInfo(err)})
		return
	}
	b.logger.Info("engine started")
	b.setFlag(b.engine.CanCheckForUpdates())
}

func (b *Bridge) isStarted() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.started
}

func (b *Bridge) checkForUpdates() {
	if !b.isStarted() {
		b.logger.Debug("ignored action", "action", protocol.ActionTypeCheckForUpdates, "reason", "engine not started")
		return
	}
	if b.machine.Detached() {
		// The engine may still hold a check that was cancelled while it
		// could not be interrupted. End it before asking for a new one.
		b.release()
		b.publish(protocol.CanCheckForUpdates{Value: b.engine.CanCheckForUpdates()})
	}
	if b.machine.Stage() != protocol.StageIdle || b.isChecking() {
		b.publish(protocol.FocusUpdate{})
		return
	}
	if b.machine.Detached() {
		b.logger.Debug("ignored action", "action", protocol.ActionTypeCheckForUpdates, "reason", "engine still busy with a cancelled check")
		return
	}
	b.machine.ForgetFailure()
	b.beginCheck()
	b.engine.CheckForUpdates()
}

// cancel invokes whichever continuation ends the current stage and brings the
// bridge back to idle. With nothing to cancel it emits nothing.
func (b *Bridge) cancel() {
	b.finish(b.release())
}

// release invokes the pending continuation that ends the engine's check.
func (b *Bridge) release() bool {
	return b.registry.InvokeCancel() ||
		b.registry.InvokeAcknowledge() ||
		b.registry.InvokeReply(protocol.ChoiceDismiss)
}

func (b *Bridge) finish(invoked bool) {
	if dismissed := b.dismiss(); invoked || dismissed {
		b.setFlag(true)
	}
}

func (b *Bridge) reply(choice protocol.Choice) {
	stage := b.machine.Stage()
	if stage == protocol.StageIdle {
		b.logger.Debug("ignored action", "action", protocol.ActionTypeReply, "reason", "no running check")
		return
	}
	if !b.registry.InvokeReply(choice) {
		b.logger.Debug("ignored action", "action", protocol.ActionTypeReply, "reason", "no pending reply")
		return
	}
	if stage == protocol.StageFound && choice != protocol.ChoiceInstall {
		b.finish(true)
	}
}

func (b *Bridge) updateSettings(s protocol.Settings) {
	b.engine.ApplySettings(adapter.NativeSettings(s))
	if b.store != nil {
		settings.Save(b.store, s)
	}
	b.logger.Info("settings updated",
		"automatically_check_for_updates", s.AutomaticallyCheckForUpdates,
		"update_interval", s.UpdateInterval,
		"automatically_download_updates", s.AutomaticallyDownloadUpdates,
		"send_system_profile", s.SendSystemProfile,
	)
}
