package protocol

// Action is a command sent from a consumer to the bridge.
// Sending an action never yields a result; consequences surface as events.
type Action interface {
	Type() string
	isAction()
}

type StartEngine struct{}

type CheckForUpdates struct{}

// Cancel cancels the running stage or acknowledges a failure.
type Cancel struct{}

type Reply struct {
	Choice Choice
}

type SetHTTPHeaders struct {
	Headers map[string]string
}

type SetPermission struct {
	AutomaticallyCheck bool
	SendSystemProfile  bool
}

type UpdateSettings struct {
	Settings Settings
}

const (
	ActionTypeStartEngine     = "startEngine"
	ActionTypeCheckForUpdates = "checkForUpdates"
	ActionTypeCancel          = "cancel"
	ActionTypeReply           = "reply"
	ActionTypeSetHTTPHeaders  = "setHTTPHeaders"
	ActionTypeSetPermission   = "setPermission"
	ActionTypeUpdateSettings  = "updateSettings"
)

func (StartEngine) Type() string     { return ActionTypeStartEngine }
func (CheckForUpdates) Type() string { return ActionTypeCheckForUpdates }
func (Cancel) Type() string          { return ActionTypeCancel }
func (Reply) Type() string           { return ActionTypeReply }
func (SetHTTPHeaders) Type() string  { return ActionTypeSetHTTPHeaders }
func (SetPermission) Type() string   { return ActionTypeSetPermission }
func (UpdateSettings) Type() string  { return ActionTypeUpdateSettings }

func (StartEngine) isAction()     {}
func (CheckForUpdates) isAction() {}
func (Cancel) isAction()          {}
func (Reply) isAction()           {}
func (SetHTTPHeaders) isAction()  {}
func (SetPermission) isAction()   {}
func (UpdateSettings) isAction()  {}

// Response converts the action into the engine-facing permission answer.
func (a SetPermission) Response() PermissionResponse {
	return PermissionResponse{
		AutomaticallyCheck: a.AutomaticallyCheck,
		SendSystemProfile:  a.SendSystemProfile,
	}
}
