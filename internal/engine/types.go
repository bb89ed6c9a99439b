package engine

import (
	"fmt"
	"time"
)

// AppcastItem is a feed entry as reported by the engine.
type AppcastItem struct {
	VersionString        string
	DisplayVersionString string
	Title                string
	ItemDescription      string
	FileURL              string
	InfoURL              string
	ReleaseNotesURL      string
	ContentLength        uint64
	DateString           string
	Date                 time.Time
	MinimumSystemVersion string
	MaximumSystemVersion string
	IsInformationOnly    bool
	InstallationType     string
	Properties           map[string]any
}

// Appcast is a parsed feed.
type Appcast struct {
	Items []AppcastItem
}

// UserUpdateStage is the raw stage number used by the engine.
// Newer engines may report values unknown to this package.
type UserUpdateStage int

const (
	UserUpdateStageNotDownloaded UserUpdateStage = 0
	UserUpdateStageDownloaded    UserUpdateStage = 1
	UserUpdateStageInstalling    UserUpdateStage = 2
)

type UserUpdateState struct {
	Stage         UserUpdateStage
	UserInitiated bool
}

// Choice is the raw user choice understood by the engine.
type Choice int

const (
	ChoiceSkip    Choice = 0
	ChoiceInstall Choice = 1
	ChoiceDismiss Choice = 2
)

// UpdateCheck is the kind of check the engine is running.
type UpdateCheck int

const (
	UpdateCheckUserInitiated UpdateCheck = iota
	UpdateCheckBackgroundScheduled
)

func (c UpdateCheck) String() string {
	if c == UpdateCheckBackgroundScheduled {
		return "backgroundScheduled"
	}
	return "userInitiated"
}

type DownloadData struct {
	Data             []byte
	URL              string
	TextEncodingName string
	MIMEType         string
}

// PermissionRequest asks for permission to check automatically.
// SystemProfile lists the entries that would be sent with each check.
type PermissionRequest struct {
	SystemProfile []map[string]string
}

type PermissionResponse struct {
	AutomaticUpdateChecks bool
	SendSystemProfile     bool
}

// Settings are the engine properties mirrored by the user settings.
type Settings struct {
	AutomaticallyChecksForUpdates bool
	UpdateCheckInterval           time.Duration
	AutomaticallyDownloadsUpdates bool
	SendsSystemProfile            bool
}

// Error is an engine failure with a domain specific code.
type Error struct {
	Domain  string
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s %d)", e.Message, e.Domain, e.Code)
}
