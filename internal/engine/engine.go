package engine

import "time"

// Engine is the native update engine. It performs the network, verification,
// extraction and relaunch work and reports back through Driver and Delegate.
// Driver and delegate methods may be called from any goroutine.
type Engine interface {
	Start(driver Driver, delegate Delegate) error
	CheckForUpdates()
	CanCheckForUpdates() bool
	SetHTTPHeaders(headers map[string]string)
	ApplySettings(settings Settings)
}

// Driver receives the presentation callbacks of the engine.
// Continuations passed to a driver method must be called at most once.
type Driver interface {
	ShowPermissionRequest(request PermissionRequest, reply func(PermissionResponse))
	ShowUserInitiatedUpdateCheck(cancel func())
	ShowUpdateFound(item AppcastItem, state UserUpdateState, reply func(Choice))
	ShowUpdateReleaseNotes(data DownloadData)
	ShowUpdateReleaseNotesFailedToDownload(err error)
	ShowUpdateNotFound(err error, acknowledge func())
	ShowUpdaterError(err error, acknowledge func())
	ShowDownloadInitiated(cancel func())
	ShowDownloadDidReceiveExpectedContentLength(length uint64)
	ShowDownloadDidReceiveData(length uint64)
	ShowDownloadDidStartExtractingUpdate()
	ShowExtractionReceivedProgress(progress float64)
	ShowInstallingUpdate()
	ShowReadyToInstallAndRelaunch(reply func(Choice))
	ShowSendingTerminationSignal()
	ShowUpdateInstalledAndRelaunched(relaunched bool, acknowledge func())
	ShowUpdateInFocus()
	DismissUpdateInstallation()
}

// Delegate answers policy queries and receives lifecycle notifications.
type Delegate interface {
	MayCheckForUpdates() bool
	AllowedSystemProfileKeys() []string
	FeedURL() string
	FeedParameters(sendingSystemProfile bool) []map[string]string
	BestValidUpdate(appcast Appcast) (AppcastItem, bool)
	VersionComparator() VersionComparator
	DecryptionPassword() string
	ShouldAllowInstallerInteraction(check UpdateCheck) bool
	ShouldPostponeRelaunch(item AppcastItem, install func()) bool
	WillInstallUpdateOnQuit(item AppcastItem, install func()) bool
	ShouldDownloadReleaseNotes() bool
	ShouldRelaunchApplication() bool
	ShouldPromptForPermission() bool

	CanCheckForUpdatesDidChange(canCheck bool)
	DidFinishLoadingAppcast(appcast Appcast)
	WillScheduleUpdateCheck(delay time.Duration)
	DidFindValidUpdate(item AppcastItem)
	DidNotFindUpdate(err error)
	WillInstallUpdate(item AppcastItem)
	DidAbortWithError(err error)
}

// Policy is the pure, synchronous developer policy consulted by the delegate.
type Policy interface {
	MayCheckForUpdates() bool
	AllowedSystemProfileKeys() []string
	FeedURL() string
	FeedParameters(sendingSystemProfile bool) []map[string]string
	// BestValidUpdate returns false to let the engine choose.
	BestValidUpdate(appcast Appcast) (AppcastItem, bool)
	// VersionComparator returns nil to use StandardComparator.
	VersionComparator() VersionComparator
	DecryptionPassword() string
	ShouldAllowInstallerInteraction(check UpdateCheck) bool
	// ShouldPostponeRelaunch may keep install and call it later.
	ShouldPostponeRelaunch(item AppcastItem, install func()) bool
	WillInstallUpdateOnQuit(item AppcastItem, install func()) bool
	ShouldDownloadReleaseNotes() bool
	ShouldRelaunchApplication() bool
	ShouldPromptForPermission() bool
}
