package adapter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pddg/sparkly/internal/engine"
	"github.com/pddg/sparkly/internal/logging"
	"github.com/pddg/sparkly/internal/protocol"
)

var (
	_ engine.Driver   = (*Adapter)(nil)
	_ engine.Delegate = (*Adapter)(nil)
)

// Adapter is the driver and the delegate handed to the engine.
//
// Each driver callback registers its continuation, if any, and then publishes
// the matching event, so a consumer reacting to the event always finds the
// continuation in place. Policy queries are forwarded to the policy.
type Adapter struct {
	logger    *slog.Logger
	registry  Registry
	publisher Publisher
	policy    engine.Policy
	progress  *Progress

	mutex sync.Mutex
	// expectedBytes is the content length of the last found update.
	expectedBytes uint64
}

func New(
	ctx context.Context,
	registry Registry,
	publisher Publisher,
	policy engine.Policy,
) *Adapter {
	logger := logging.Component(ctx, "adapter")
	return &Adapter{
		logger:    logger,
		registry:  registry,
		publisher: publisher,
		policy:    policy,
		progress:  NewProgress(logger),
	}
}

func (a *Adapter) publishState(state protocol.UpdateCheckState) {
	a.publisher.Publish(protocol.UpdateCheck{State: state})
}

func (a *Adapter) publishDownload() {
	total, completed := a.progress.Snapshot()
	a.publishState(protocol.Downloading{Total: total, Completed: completed})
}

// unsupported marks driver callbacks that have no event.
func (a *Adapter) unsupported(callback string, args ...any) {
	a.logger.Warn("unsupported driver callback", append([]any{"callback", callback}, args...)...)
}

func (a *Adapter) ShowPermissionRequest(request engine.PermissionRequest, reply func(engine.PermissionResponse)) {
	a.registry.RegisterPermission(func(resp protocol.PermissionResponse) {
		reply(engine.PermissionResponse{
			AutomaticUpdateChecks: resp.AutomaticallyCheck,
			SendSystemProfile:     resp.SendSystemProfile,
		})
	})
	a.logger.Info("permission requested", "system_profile_entries", len(request.SystemProfile))
	a.publisher.Publish(protocol.PermissionRequest{})
}

func (a *Adapter) ShowUserInitiatedUpdateCheck(cancel func()) {
	a.registry.RegisterCancel(cancel)
	a.publishState(protocol.Checking{})
}

func (a *Adapter) ShowUpdateFound(item engine.AppcastItem, state engine.UserUpdateState, reply func(engine.Choice)) {
	userState, err := userUpdateState(state)
	if err != nil {
		a.logger.Error("dropped found update", "version", item.VersionString, "error", err)
		return
	}
	a.mutex.Lock()
	a.expectedBytes = item.ContentLength
	a.mutex.Unlock()
	a.registry.RegisterReply(func(c protocol.Choice) {
		reply(nativeChoice(c))
	})
	a.logger.Info("update found", "version", item.VersionString, "size", humanize.Bytes(item.ContentLength), "stage", userState.Stage)
	a.publishState(protocol.Found{Update: appcastItem(item), State: userState})
}

func (a *Adapter) ShowUpdateReleaseNotes(data engine.DownloadData) {
	a.publisher.Publish(protocol.ShowReleaseNotes{Data: downloadData(data)})
}

func (a *Adapter) ShowUpdateReleaseNotesFailedToDownload(err error) {
	a.unsupported("ShowUpdateReleaseNotesFailedToDownload", "error", err)
}

func (a *Adapter) ShowUpdateNotFound(err error, acknowledge func()) {
	a.showError(err, acknowledge)
}

func (a *Adapter) ShowUpdaterError(err error, acknowledge func()) {
	a.showError(err, acknowledge)
}

func (a *Adapter) showError(err error, acknowledge func()) {
	a.registry.RegisterAcknowledge(acknowledge)
	a.publisher.Publish(protocol.Failure{Info: ErrorInfo(err)})
}

func (a *Adapter) ShowDownloadInitiated(cancel func()) {
	a.mutex.Lock()
	expected := a.expectedBytes
	a.mutex.Unlock()
	a.progress.Reset(expected)
	a.registry.RegisterCancel(cancel)
	a.publishDownload()
}

func (a *Adapter) ShowDownloadDidReceiveExpectedContentLength(length uint64) {
	a.progress.SetTotal(length)
	a.publishDownload()
}

func (a *Adapter) ShowDownloadDidReceiveData(length uint64) {
	a.progress.Add(length)
	a.publishDownload()
}

func (a *Adapter) ShowDownloadDidStartExtractingUpdate() {
	// The download can no longer be cancelled.
	a.registry.Clear()
	a.publishState(protocol.Extracting{Completed: 0})
}

func (a *Adapter) ShowExtractionReceivedProgress(progress float64) {
	a.publishState(protocol.Extracting{Completed: progress})
}

func (a *Adapter) ShowInstallingUpdate() {
	a.publishState(protocol.Installing{})
}

func (a *Adapter) ShowReadyToInstallAndRelaunch(reply func(engine.Choice)) {
	a.registry.RegisterReply(func(c protocol.Choice) {
		reply(nativeChoice(c))
	})
	a.publishState(protocol.ReadyToRelaunch{})
}

func (a *Adapter) ShowSendingTerminationSignal() {
	a.publisher.Publish(protocol.TerminationSignal{})
}

func (a *Adapter) ShowUpdateInstalledAndRelaunched(relaunched bool, acknowledge func()) {
	a.registry.RegisterAcknowledge(acknowledge)
	a.publisher.Publish(protocol.UpdateInstalledAndRelaunched{Relaunched: relaunched})
}

func (a *Adapter) ShowUpdateInFocus() {
	a.publisher.Publish(protocol.FocusUpdate{})
}

func (a *Adapter) DismissUpdateInstallation() {
	a.registry.Clear()
	a.progress.Reset(0)
	a.publisher.Publish(protocol.DismissInstallation{})
}

func (a *Adapter) MayCheckForUpdates() bool {
	return a.policy.MayCheckForUpdates()
}

func (a *Adapter) AllowedSystemProfileKeys() []string {
	return a.policy.AllowedSystemProfileKeys()
}

func (a *Adapter) FeedURL() string {
	return a.policy.FeedURL()
}

func (a *Adapter) FeedParameters(sendingSystemProfile bool) []map[string]string {
	return a.policy.FeedParameters(sendingSystemProfile)
}

func (a *Adapter) BestValidUpdate(appcast engine.Appcast) (engine.AppcastItem, bool) {
	return a.policy.BestValidUpdate(appcast)
}

func (a *Adapter) VersionComparator() engine.VersionComparator {
	if c := a.policy.VersionComparator(); c != nil {
		return c
	}
	return engine.StandardComparator{}
}

func (a *Adapter) DecryptionPassword() string {
	return a.policy.DecryptionPassword()
}

func (a *Adapter) ShouldAllowInstallerInteraction(check engine.UpdateCheck) bool {
	return a.policy.ShouldAllowInstallerInteraction(check)
}

func (a *Adapter) ShouldPostponeRelaunch(item engine.AppcastItem, install func()) bool {
	return a.policy.ShouldPostponeRelaunch(item, install)
}

func (a *Adapter) WillInstallUpdateOnQuit(item engine.AppcastItem, install func()) bool {
	return a.policy.WillInstallUpdateOnQuit(item, install)
}

func (a *Adapter) ShouldDownloadReleaseNotes() bool {
	return a.policy.ShouldDownloadReleaseNotes()
}

func (a *Adapter) ShouldRelaunchApplication() bool {
	return a.policy.ShouldRelaunchApplication()
}

func (a *Adapter) ShouldPromptForPermission() bool {
	return a.policy.ShouldPromptForPermission()
}

func (a *Adapter) CanCheckForUpdatesDidChange(canCheck bool) {
	a.publisher.Publish(protocol.CanCheckForUpdates{Value: canCheck})
}

func (a *Adapter) DidFinishLoadingAppcast(appcast engine.Appcast) {
	a.logger.Debug("appcast loaded", "items", len(appcast.Items))
}

func (a *Adapter) WillScheduleUpdateCheck(delay time.Duration) {
	a.logger.Debug("update check scheduled", "delay", delay.String())
}

func (a *Adapter) DidFindValidUpdate(item engine.AppcastItem) {
	a.logger.Debug("valid update found", "version", item.VersionString)
}

func (a *Adapter) DidNotFindUpdate(err error) {
	a.logger.Debug("no update found", "reason", err)
}

func (a *Adapter) WillInstallUpdate(item engine.AppcastItem) {
	a.logger.Info("installing update", "version", item.VersionString)
}

func (a *Adapter) DidAbortWithError(err error) {
	a.publisher.Publish(protocol.Failure{Info: ErrorInfo(err)})
}
