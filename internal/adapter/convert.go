package adapter

import (
	"errors"
	"fmt"
	"maps"

	"github.com/pddg/sparkly/internal/engine"
	"github.com/pddg/sparkly/internal/protocol"
)

// ErrUnknownStage is reported for user update stages this package does not know.
var ErrUnknownStage = errors.New("unknown user update stage")

func appcastItem(item engine.AppcastItem) protocol.AppcastItem {
	return protocol.AppcastItem{
		VersionString:        item.VersionString,
		DisplayVersionString: item.DisplayVersionString,
		Title:                item.Title,
		ItemDescription:      item.ItemDescription,
		FileURL:              item.FileURL,
		InfoURL:              item.InfoURL,
		ReleaseNotesURL:      item.ReleaseNotesURL,
		ContentLength:        item.ContentLength,
		DateString:           item.DateString,
		Date:                 item.Date,
		MinimumSystemVersion: item.MinimumSystemVersion,
		MaximumSystemVersion: item.MaximumSystemVersion,
		IsInformationOnly:    item.IsInformationOnly,
		InstallationType:     item.InstallationType,
		Properties:           maps.Clone(item.Properties),
	}
}

func userUpdateState(state engine.UserUpdateState) (protocol.UserUpdateState, error) {
	var stage protocol.UpdateStage
	switch state.Stage {
	case engine.UserUpdateStageNotDownloaded:
		stage = protocol.UpdateStageNotDownloaded
	case engine.UserUpdateStageDownloaded:
		stage = protocol.UpdateStageDownloaded
	case engine.UserUpdateStageInstalling:
		stage = protocol.UpdateStageInstalling
	default:
		return protocol.UserUpdateState{}, fmt.Errorf("%w: %d", ErrUnknownStage, state.Stage)
	}
	return protocol.UserUpdateState{Stage: stage, UserInitiated: state.UserInitiated}, nil
}

func nativeChoice(c protocol.Choice) engine.Choice {
	switch c {
	case protocol.ChoiceInstall:
		return engine.ChoiceInstall
	case protocol.ChoiceSkip:
		return engine.ChoiceSkip
	default:
		return engine.ChoiceDismiss
	}
}

func downloadData(data engine.DownloadData) protocol.DownloadData {
	return protocol.DownloadData{
		Bytes:            data.Data,
		URL:              data.URL,
		TextEncodingName: data.TextEncodingName,
		MIMEType:         data.MIMEType,
	}
}

// ErrorInfo converts an engine error. Errors other than *engine.Error get code 0.
func ErrorInfo(err error) protocol.ErrorInfo {
	if err == nil {
		return protocol.ErrorInfo{Message: "unknown error"}
	}
	var engineErr *engine.Error
	if errors.As(err, &engineErr) {
		return protocol.ErrorInfo{
			Domain:  engineErr.Domain,
			Code:    engineErr.Code,
			Message: engineErr.Message,
		}
	}
	return protocol.ErrorInfo{Message: err.Error()}
}

// NativeSettings converts user settings into engine properties.
func NativeSettings(s protocol.Settings) engine.Settings {
	return engine.Settings{
		AutomaticallyChecksForUpdates: s.AutomaticallyCheckForUpdates,
		UpdateCheckInterval:           s.UpdateInterval.Duration(),
		AutomaticallyDownloadsUpdates: s.AutomaticallyDownloadUpdates,
		SendsSystemProfile:            s.SendSystemProfile,
	}
}

// SettingsFromNative converts engine properties into user settings. The check
// interval is bucketed into the smallest enclosing preset.
func SettingsFromNative(s engine.Settings) protocol.Settings {
	return protocol.Settings{
		AutomaticallyCheckForUpdates: s.AutomaticallyChecksForUpdates,
		UpdateInterval:               protocol.IntervalFromDuration(s.UpdateCheckInterval),
		AutomaticallyDownloadUpdates: s.AutomaticallyDownloadsUpdates,
		SendSystemProfile:            s.SendsSystemProfile,
	}
}

// NativeHeaders copies the headers handed to the engine.
func NativeHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return map[string]string{}
	}
	return maps.Clone(headers)
}
