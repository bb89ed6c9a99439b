package protocol

// Event is a notification sent from the bridge to its consumers.
type Event interface {
	Type() string
	isEvent()
}

// CanCheckForUpdates reports whether a manual update check may be started.
type CanCheckForUpdates struct {
	Value bool
}

// PermissionRequest asks the consumer whether automatic checks are allowed.
// Answer it with a SetPermission action.
type PermissionRequest struct{}

type UpdateCheck struct {
	State UpdateCheckState
}

type ShowReleaseNotes struct {
	Data DownloadData
}

// DismissInstallation ends the current update check.
type DismissInstallation struct{}

// FocusUpdate asks the consumer to bring the running update check to front.
type FocusUpdate struct{}

type TerminationSignal struct{}

type UpdateInstalledAndRelaunched struct {
	Relaunched bool
}

// Failure carries an engine error. Acknowledge it with a Cancel action.
type Failure struct {
	Info ErrorInfo
}

const (
	EventTypeCanCheckForUpdates           = "canCheckForUpdates"
	EventTypePermissionRequest            = "permissionRequest"
	EventTypeUpdateCheck                  = "updateCheck"
	EventTypeShowReleaseNotes             = "showReleaseNotes"
	EventTypeDismissInstallation          = "dismissInstallation"
	EventTypeFocusUpdate                  = "focusUpdate"
	EventTypeTerminationSignal            = "terminationSignal"
	EventTypeUpdateInstalledAndRelaunched = "updateInstalledAndRelaunched"
	EventTypeFailure                      = "failure"
)

var EventTypes = []string{
	EventTypeCanCheckForUpdates,
	EventTypePermissionRequest,
	EventTypeUpdateCheck,
	EventTypeShowReleaseNotes,
	EventTypeDismissInstallation,
	EventTypeFocusUpdate,
	EventTypeTerminationSignal,
	EventTypeUpdateInstalledAndRelaunched,
	EventTypeFailure,
}

func (CanCheckForUpdates) Type() string           { return EventTypeCanCheckForUpdates }
func (PermissionRequest) Type() string            { return EventTypePermissionRequest }
func (UpdateCheck) Type() string                  { return EventTypeUpdateCheck }
func (ShowReleaseNotes) Type() string             { return EventTypeShowReleaseNotes }
func (DismissInstallation) Type() string          { return EventTypeDismissInstallation }
func (FocusUpdate) Type() string                  { return EventTypeFocusUpdate }
func (TerminationSignal) Type() string            { return EventTypeTerminationSignal }
func (UpdateInstalledAndRelaunched) Type() string { return EventTypeUpdateInstalledAndRelaunched }
func (Failure) Type() string                      { return EventTypeFailure }

func (CanCheckForUpdates) isEvent()           {}
func (PermissionRequest) isEvent()            {}
func (UpdateCheck) isEvent()                  {}
func (ShowReleaseNotes) isEvent()             {}
func (DismissInstallation) isEvent()          {}
func (FocusUpdate) isEvent()                  {}
func (TerminationSignal) isEvent()            {}
func (UpdateInstalledAndRelaunched) isEvent() {}
func (Failure) isEvent()                      {}
