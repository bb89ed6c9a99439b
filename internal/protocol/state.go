package protocol

import "reflect"

// Stage orders the lifecycle of a single update check.
// StageIdle is never carried in-band; it is the absence of an UpdateCheckState.
type Stage int

const (
	StageIdle Stage = iota
	StageChecking
	StageFound
	StageDownloading
	StageExtracting
	StageInstalling
	StageReadyToRelaunch
)

var Stages = []Stage{
	StageIdle,
	StageChecking,
	StageFound,
	StageDownloading,
	StageExtracting,
	StageInstalling,
	StageReadyToRelaunch,
}

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageChecking:
		return "checking"
	case StageFound:
		return "found"
	case StageDownloading:
		return "downloading"
	case StageExtracting:
		return "extracting"
	case StageInstalling:
		return "installing"
	case StageReadyToRelaunch:
		return "readyToRelaunch"
	default:
		return "unknown"
	}
}

// UpdateCheckState is the value of the lifecycle state machine.
type UpdateCheckState interface {
	Stage() Stage
}

type Checking struct{}

type Found struct {
	Update AppcastItem
	State  UserUpdateState
}

// Downloading reports download progress in bytes.
// Total is zero until the content length is known.
type Downloading struct {
	Total     float64
	Completed float64
}

// Extracting reports extraction progress in the range [0, 1].
type Extracting struct {
	Completed float64
}

type Installing struct{}

type ReadyToRelaunch struct{}

func (Checking) Stage() Stage        { return StageChecking }
func (Found) Stage() Stage           { return StageFound }
func (Downloading) Stage() Stage     { return StageDownloading }
func (Extracting) Stage() Stage      { return StageExtracting }
func (Installing) Stage() Stage      { return StageInstalling }
func (ReadyToRelaunch) Stage() Stage { return StageReadyToRelaunch }

// StageOf returns StageIdle for a nil state.
func StageOf(s UpdateCheckState) Stage {
	if s == nil {
		return StageIdle
	}
	return s.Stage()
}

// SameState reports whether two states are structurally equal.
func SameState(a, b UpdateCheckState) bool {
	return reflect.DeepEqual(a, b)
}
