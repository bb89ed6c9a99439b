package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("unknown type")

type actionEnvelope struct {
	Type       string              `json:"type"`
	Choice     Choice              `json:"choice,omitempty"`
	Headers    map[string]string   `json:"headers,omitempty"`
	Permission *PermissionResponse `json:"permission,omitempty"`
	Settings   *Settings           `json:"settings,omitempty"`
}

// MarshalAction encodes an action as a JSON object discriminated by "type".
func MarshalAction(a Action) ([]byte, error) {
	env := actionEnvelope{Type: a.Type()}
	switch a := a.(type) {
	case Reply:
		env.Choice = a.Choice
	case SetHTTPHeaders:
		env.Headers = a.Headers
	case SetPermission:
		resp := a.Response()
		env.Permission = &resp
	case UpdateSettings:
		env.Settings = &a.Settings
	}
	return json.Marshal(env)
}

// UnmarshalAction decodes an action encoded by MarshalAction.
func UnmarshalAction(data []byte) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol.UnmarshalAction: failed to decode: %w", err)
	}
	switch env.Type {
	case ActionTypeStartEngine:
		return StartEngine{}, nil
	case ActionTypeCheckForUpdates:
		return CheckForUpdates{}, nil
	case ActionTypeCancel:
		return Cancel{}, nil
	case ActionTypeReply:
		choice, err := ParseChoice(string(env.Choice))
		if err != nil {
			return nil, fmt.Errorf("protocol.UnmarshalAction: %w", err)
		}
		return Reply{Choice: choice}, nil
	case ActionTypeSetHTTPHeaders:
		return SetHTTPHeaders{Headers: env.Headers}, nil
	case ActionTypeSetPermission:
		if env.Permission == nil {
			return nil, fmt.Errorf("protocol.UnmarshalAction: %q requires a permission object", env.Type)
		}
		return SetPermission{
			AutomaticallyCheck: env.Permission.AutomaticallyCheck,
			SendSystemProfile:  env.Permission.SendSystemProfile,
		}, nil
	case ActionTypeUpdateSettings:
		if env.Settings == nil {
			return nil, fmt.Errorf("protocol.UnmarshalAction: %q requires a settings object", env.Type)
		}
		if _, err := ParseUpdateInterval(string(env.Settings.UpdateInterval)); err != nil {
			return nil, fmt.Errorf("protocol.UnmarshalAction: %w", err)
		}
		return UpdateSettings{Settings: *env.Settings}, nil
	default:
		return nil, fmt.Errorf("protocol.UnmarshalAction: %w: %q", ErrUnknownType, env.Type)
	}
}

type stateEnvelope struct {
	Stage     string           `json:"stage"`
	Update    *AppcastItem     `json:"update,omitempty"`
	UserState *UserUpdateState `json:"user_state,omitempty"`
	Total     *float64         `json:"total,omitempty"`
	Completed *float64         `json:"completed,omitempty"`
}

type eventEnvelope struct {
	Type       string         `json:"type"`
	Value      *bool          `json:"value,omitempty"`
	State      *stateEnvelope `json:"state,omitempty"`
	Data       *DownloadData  `json:"data,omitempty"`
	Relaunched *bool          `json:"relaunched,omitempty"`
	Error      *ErrorInfo     `json:"error,omitempty"`
}

// MarshalEvent encodes an event as a JSON object discriminated by "type".
func MarshalEvent(e Event) ([]byte, error) {
	env := eventEnvelope{Type: e.Type()}
	switch e := e.(type) {
	case CanCheckForUpdates:
		env.Value = &e.Value
	case UpdateCheck:
		state, err := encodeState(e.State)
		if err != nil {
			return nil, fmt.Errorf("protocol.MarshalEvent: %w", err)
		}
		env.State = state
	case ShowReleaseNotes:
		env.Data = &e.Data
	case UpdateInstalledAndRelaunched:
		env.Relaunched = &e.Relaunched
	case Failure:
		env.Error = &e.Info
	}
	return json.Marshal(env)
}

// UnmarshalEvent decodes an event encoded by MarshalEvent.
func UnmarshalEvent(data []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol.UnmarshalEvent: failed to decode: %w", err)
	}
	switch env.Type {
	case EventTypeCanCheckForUpdates:
		return CanCheckForUpdates{Value: env.Value != nil && *env.Value}, nil
	case EventTypePermissionRequest:
		return PermissionRequest{}, nil
	case EventTypeUpdateCheck:
		if env.State == nil {
			return nil, fmt.Errorf("protocol.UnmarshalEvent: %q requires a state", env.Type)
		}
		state, err := decodeState(env.State)
		if err != nil {
			return nil, fmt.Errorf("protocol.UnmarshalEvent: %w", err)
		}
		return UpdateCheck{State: state}, nil
	case EventTypeShowReleaseNotes:
		if env.Data == nil {
			return nil, fmt.Errorf("protocol.UnmarshalEvent: %q requires data", env.Type)
		}
		return ShowReleaseNotes{Data: *env.Data}, nil
	case EventTypeDismissInstallation:
		return DismissInstallation{}, nil
	case EventTypeFocusUpdate:
		return FocusUpdate{}, nil
	case EventTypeTerminationSignal:
		return TerminationSignal{}, nil
	case EventTypeUpdateInstalledAndRelaunched:
		return UpdateInstalledAndRelaunched{Relaunched: env.Relaunched != nil && *env.Relaunched}, nil
	case EventTypeFailure:
		if env.Error == nil {
			return nil, fmt.Errorf("protocol.UnmarshalEvent: %q requires an error", env.Type)
		}
		return Failure{Info: *env.Error}, nil
	default:
		return nil, fmt.Errorf("protocol.UnmarshalEvent: %w: %q", ErrUnknownType, env.Type)
	}
}

// MarshalState encodes an update check state. A nil state encodes as null.
func MarshalState(s UpdateCheckState) ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	env, err := encodeState(s)
	if err != nil {
		return nil, fmt.Errorf("protocol.MarshalState: %w", err)
	}
	return json.Marshal(env)
}

// UnmarshalState decodes a state encoded by MarshalState.
func UnmarshalState(data []byte) (UpdateCheckState, error) {
	var env *stateEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol.UnmarshalState: failed to decode: %w", err)
	}
	if env == nil {
		return nil, nil
	}
	s, err := decodeState(env)
	if err != nil {
		return nil, fmt.Errorf("protocol.UnmarshalState: %w", err)
	}
	return s, nil
}

func encodeState(s UpdateCheckState) (*stateEnvelope, error) {
	if s == nil {
		return nil, errors.New("state must not be nil")
	}
	env := &stateEnvelope{Stage: s.Stage().String()}
	switch s := s.(type) {
	case Found:
		env.Update = &s.Update
		env.UserState = &s.State
	case Downloading:
		env.Total = &s.Total
		env.Completed = &s.Completed
	case Extracting:
		env.Completed = &s.Completed
	}
	return env, nil
}

func decodeState(env *stateEnvelope) (UpdateCheckState, error) {
	stage, err := ParseStage(env.Stage)
	if err != nil {
		return nil, err
	}
	switch stage {
	case StageChecking:
		return Checking{}, nil
	case StageFound:
		if env.Update == nil || env.UserState == nil {
			return nil, fmt.Errorf("stage %q requires update and user_state", env.Stage)
		}
		return Found{Update: *env.Update, State: *env.UserState}, nil
	case StageDownloading:
		return Downloading{Total: deref(env.Total), Completed: deref(env.Completed)}, nil
	case StageExtracting:
		return Extracting{Completed: deref(env.Completed)}, nil
	case StageInstalling:
		return Installing{}, nil
	case StageReadyToRelaunch:
		return ReadyToRelaunch{}, nil
	default:
		return nil, fmt.Errorf("%w: stage %q", ErrUnknownType, env.Stage)
	}
}

// ParseStage is the inverse of Stage.String.
func ParseStage(s string) (Stage, error) {
	for _, stage := range Stages {
		if stage.String() == s {
			return stage, nil
		}
	}
	return StageIdle, fmt.Errorf("%w: stage %q", ErrUnknownType, s)
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
