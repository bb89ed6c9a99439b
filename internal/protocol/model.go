package protocol

import (
	"fmt"
	"time"
)

// AppcastItem describes a candidate update found in the feed.
// Items are produced by the engine; optional URLs are empty when absent.
type AppcastItem struct {
	VersionString        string         `json:"version_string"`
	DisplayVersionString string         `json:"display_version_string,omitempty"`
	Title                string         `json:"title,omitempty"`
	ItemDescription      string         `json:"item_description,omitempty"`
	FileURL              string         `json:"file_url,omitempty"`
	InfoURL              string         `json:"info_url,omitempty"`
	ReleaseNotesURL      string         `json:"release_notes_url,omitempty"`
	ContentLength        uint64         `json:"content_length"`
	DateString           string         `json:"date_string,omitempty"`
	Date                 time.Time      `json:"date,omitzero"`
	MinimumSystemVersion string         `json:"minimum_system_version,omitempty"`
	MaximumSystemVersion string         `json:"maximum_system_version,omitempty"`
	IsInformationOnly    bool           `json:"is_information_only,omitempty"`
	InstallationType     string         `json:"installation_type,omitempty"`
	Properties           map[string]any `json:"properties,omitempty"`
}

// UpdateStage is the stage an update is in before the user is asked to act.
type UpdateStage string

const (
	UpdateStageNotDownloaded UpdateStage = "notDownloaded"
	UpdateStageDownloaded    UpdateStage = "downloaded"
	UpdateStageInstalling    UpdateStage = "installing"
)

// UserUpdateState accompanies a found update.
type UserUpdateState struct {
	Stage         UpdateStage `json:"stage"`
	UserInitiated bool        `json:"user_initiated"`
}

// Choice is the user's reply to a found update or to a ready-to-relaunch prompt.
type Choice string

const (
	ChoiceSkip    Choice = "skip"
	ChoiceInstall Choice = "install"
	ChoiceDismiss Choice = "dismiss"
)

var Choices = []Choice{
	ChoiceSkip,
	ChoiceInstall,
	ChoiceDismiss,
}

// ParseChoice converts a textual choice into a Choice.
func ParseChoice(s string) (Choice, error) {
	for _, c := range Choices {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("protocol.ParseChoice: unknown choice %q", s)
}

// DownloadData holds downloaded release notes. It is opaque to the bridge.
type DownloadData struct {
	Bytes            []byte `json:"bytes"`
	URL              string `json:"url"`
	TextEncodingName string `json:"text_encoding_name,omitempty"`
	MIMEType         string `json:"mime_type,omitempty"`
}

// PermissionResponse answers an engine permission request.
type PermissionResponse struct {
	AutomaticallyCheck bool `json:"automatically_check"`
	SendSystemProfile  bool `json:"send_system_profile"`
}

// ErrorInfo is a human readable engine failure with an opaque code.
type ErrorInfo struct {
	Domain  string `json:"domain,omitempty"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e ErrorInfo) Error() string {
	if e.Domain == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s %d)", e.Message, e.Domain, e.Code)
}
