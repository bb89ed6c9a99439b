package mockengine

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/pddg/sparkly/internal/engine"
	"github.com/pddg/sparkly/internal/extractor"
	"github.com/pddg/sparkly/internal/logging"
	"github.com/pddg/sparkly/internal/vtime"
)

// MockItem is the update found by default.
var MockItem = engine.AppcastItem{
	VersionString:        "2.0.0",
	DisplayVersionString: "2.0.0",
	Title:                "Version 2.0.0",
	ItemDescription:      "Bug fixes and performance improvements.",
	FileURL:              "https://example.com/downloads/app-2.0.0.zip",
	ContentLength:        4,
	DateString:           "Sat, 30 Oct 2021 12:00:00 +0000",
	Date:                 time.Date(2021, time.October, 30, 12, 0, 0, 0, time.UTC),
	MinimumSystemVersion: "11.0",
}

// MockUserUpdateState is the state reported with a found update by default.
var MockUserUpdateState = engine.UserUpdateState{
	Stage:         engine.UserUpdateStageNotDownloaded,
	UserInitiated: true,
}

// ErrMayNotCheck is reported when the delegate refuses a check.
var ErrMayNotCheck = &engine.Error{Domain: "SUSparkleErrorDomain", Code: 1, Message: "Checking for updates is not allowed."}

// ErrExtraction is reported when the update archive could not be extracted.
var ErrExtraction = &engine.Error{Domain: "SUSparkleErrorDomain", Code: 3000, Message: "An error occurred while extracting the archive."}

// Engine simulates the update engine on a virtual clock.
//
// A user initiated check finds the configured update on the next Advance of
// the scheduler. Installing it receives the update in chunks and walks
// through extraction and installation one tick per step, then waits for the
// relaunch reply. Continuations handed to the driver belong to one check and
// become no-ops once that check ended.
type Engine struct {
	ctx       context.Context
	logger    *slog.Logger
	scheduler *vtime.Scheduler

	item          engine.AppcastItem
	userState     engine.UserUpdateState
	failAfter     time.Duration
	failErr       error
	startErr      error
	askPermission bool
	systemProfile []map[string]string
	releaseNotes  ReleaseNotesFetcher
	chunks        []uint64
	archive       string
	workDir       string
	extractor     Extractor

	// steps serializes the simulation so a continuation run by the consumer
	// never interleaves with a scheduled step.
	steps sync.Mutex

	mutex       sync.Mutex
	driver      engine.Driver
	delegate    engine.Delegate
	started     bool
	inSession   bool
	generation  int
	checks      int
	headers     map[string]string
	settings    engine.Settings
	permissions []engine.PermissionResponse
}

var _ engine.Engine = (*Engine)(nil)

func New(ctx context.Context, scheduler *vtime.Scheduler, options ...Option) *Engine {
	e := &Engine{
		ctx:       ctx,
		logger:    logging.Component(ctx, "mockengine"),
		scheduler: scheduler,
		item:      MockItem,
		userState: MockUserUpdateState,
		headers:   map[string]string{},
	}
	for _, option := range options {
		option(e)
	}
	return e
}

func (e *Engine) Start(driver engine.Driver, delegate engine.Delegate) error {
	if e.startErr != nil {
		return e.startErr
	}
	e.mutex.Lock()
	if e.started {
		e.mutex.Unlock()
		return errors.New("mockengine.Engine.Start: already started")
	}
	e.driver = driver
	e.delegate = delegate
	e.started = true
	e.mutex.Unlock()

	if e.askPermission {
		e.scheduler.Schedule(e.step(e.requestPermission))
	}
	return nil
}

// step wraps a simulation entry point.
func (e *Engine) step(fn func()) func() {
	return func() {
		e.steps.Lock()
		defer e.steps.Unlock()
		fn()
	}
}

func (e *Engine) requestPermission() {
	if !e.delegate.ShouldPromptForPermission() {
		return
	}
	e.driver.ShowPermissionRequest(engine.PermissionRequest{SystemProfile: e.systemProfile}, func(resp engine.PermissionResponse) {
		e.steps.Lock()
		defer e.steps.Unlock()
		e.mutex.Lock()
		e.permissions = append(e.permissions, resp)
		e.settings.AutomaticallyChecksForUpdates = resp.AutomaticUpdateChecks
		e.settings.SendsSystemProfile = resp.SendSystemProfile
		e.mutex.Unlock()
	})
}

func (e *Engine) CanCheckForUpdates() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.started && !e.inSession
}

func (e *Engine) SetHTTPHeaders(headers map[string]string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.headers = maps.Clone(headers)
}

func (e *Engine) ApplySettings(settings engine.Settings) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.settings = settings
}

func (e *Engine) CheckForUpdates() {
	e.steps.Lock()
	defer e.steps.Unlock()

	e.mutex.Lock()
	if !e.started {
		e.mutex.Unlock()
		return
	}
	if e.inSession {
		e.mutex.Unlock()
		e.driver.ShowUpdateInFocus()
		return
	}
	e.inSession = true
	e.generation++
	e.checks++
	gen := e.generation
	e.mutex.Unlock()

	e.delegate.CanCheckForUpdatesDidChange(false)
	if !e.delegate.MayCheckForUpdates() {
		e.driver.ShowUpdaterError(ErrMayNotCheck, e.continuation(gen, func() { e.endSession(gen) }))
		return
	}
	// Steps are scheduled before the driver is told so that a consumer
	// reacting to the event can advance the clock right away.
	if e.failErr != nil {
		e.scheduler.ScheduleAfter(e.failAfter, e.task(gen, func() { e.fail(gen) }))
	} else {
		e.scheduler.Schedule(e.task(gen, func() { e.found(gen) }))
	}
	e.driver.ShowUserInitiatedUpdateCheck(e.continuation(gen, func() { e.dismiss(gen) }))
}

// continuation guards a driver continuation of check gen.
func (e *Engine) continuation(gen int, fn func()) func() {
	return func() {
		e.steps.Lock()
		defer e.steps.Unlock()
		if !e.isCurrent(gen) {
			e.logger.Debug("ignored stale continuation", "generation", gen)
			return
		}
		fn()
	}
}

// task guards a scheduled step of check gen.
func (e *Engine) task(gen int, fn func()) vtime.Task {
	return e.continuation(gen, fn)
}

func (e *Engine) isCurrent(gen int) bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.inSession && e.generation == gen
}

func (e *Engine) fail(gen int) {
	e.driver.ShowUpdaterError(e.failErr, e.continuation(gen, func() { e.endSession(gen) }))
	e.delegate.DidAbortWithError(e.failErr)
}

func (e *Engine) found(gen int) {
	e.delegate.DidFinishLoadingAppcast(engine.Appcast{Items: []engine.AppcastItem{e.item}})
	item := e.item
	if best, ok := e.delegate.BestValidUpdate(engine.Appcast{Items: []engine.AppcastItem{e.item}}); ok {
		item = best
	}
	e.delegate.DidFindValidUpdate(item)
	e.driver.ShowUpdateFound(item, e.userState, func(c engine.Choice) {
		e.continuation(gen, func() { e.choose(gen, item, c) })()
	})
	if e.releaseNotes != nil && item.ReleaseNotesURL != "" && e.delegate.ShouldDownloadReleaseNotes() {
		data, err := e.releaseNotes.Fetch(e.ctx, item.ReleaseNotesURL)
		if err != nil {
			e.driver.ShowUpdateReleaseNotesFailedToDownload(err)
			return
		}
		e.driver.ShowUpdateReleaseNotes(data)
	}
}

func (e *Engine) choose(gen int, item engine.AppcastItem, c engine.Choice) {
	switch c {
	case engine.ChoiceInstall:
		e.download(gen, item)
	default:
		e.dismiss(gen)
	}
}

func (e *Engine) download(gen int, item engine.AppcastItem) {
	var steps []vtime.Task
	for _, chunk := range e.chunksFor(item.ContentLength) {
		steps = append(steps, e.task(gen, func() { e.driver.ShowDownloadDidReceiveData(chunk) }))
	}
	steps = append(steps,
		e.task(gen, func() { e.driver.ShowDownloadDidStartExtractingUpdate() }),
		e.task(gen, func() { e.extract(item) }),
		e.task(gen, func() {
			e.delegate.WillInstallUpdate(item)
			e.driver.ShowInstallingUpdate()
		}),
		e.task(gen, func() {
			e.driver.ShowReadyToInstallAndRelaunch(func(c engine.Choice) {
				e.continuation(gen, func() { e.relaunch(gen, item, c) })()
			})
		}),
	)
	e.scheduler.ScheduleSequentially(steps...)
	e.driver.ShowDownloadInitiated(e.continuation(gen, func() { e.dismiss(gen) }))
	e.driver.ShowDownloadDidReceiveExpectedContentLength(item.ContentLength)
}

// extract unpacks the update archive into the work directory. Without an
// archive extraction completes at once.
func (e *Engine) extract(item engine.AppcastItem) {
	if e.archive == "" {
		e.driver.ShowExtractionReceivedProgress(1.0)
		return
	}
	dest := filepath.Join(e.workDir, item.VersionString)
	if err := e.extractTo(dest); err != nil {
		e.logger.Error("failed to extract update", "archive", e.archive, "error", err)
		e.abort(ErrExtraction)
		return
	}
	e.logger.Info("update extracted", "dest", dest)
}

func (e *Engine) extractTo(dest string) error {
	compressed, err := extractor.IsCompressed(e.archive)
	if err != nil {
		return err
	}
	f, err := os.Open(e.archive)
	if err != nil {
		return err
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return err
	}
	options := []extractor.ExtractOption{
		extractor.WithProgress(stat.Size(), e.driver.ShowExtractionReceivedProgress),
	}
	if !compressed {
		options = append(options, extractor.Uncompressed())
	}
	return e.extractor.Extract(e.ctx, f, dest, options...)
}

// abort ends the pending steps of the current check and reports err. The
// check stays in session until the error is acknowledged.
func (e *Engine) abort(err error) {
	e.mutex.Lock()
	e.generation++
	gen := e.generation
	e.mutex.Unlock()
	e.driver.ShowUpdaterError(err, e.continuation(gen, func() { e.endSession(gen) }))
	e.delegate.DidAbortWithError(err)
}

func (e *Engine) chunksFor(length uint64) []uint64 {
	if len(e.chunks) > 0 {
		return slices.Clone(e.chunks)
	}
	if length == 0 {
		return nil
	}
	first := length * 3 / 4
	if first == 0 || first == length {
		return []uint64{length}
	}
	return []uint64{first, length - first}
}

func (e *Engine) relaunch(gen int, item engine.AppcastItem, c engine.Choice) {
	if c != engine.ChoiceInstall {
		e.dismiss(gen)
		return
	}
	install := func() {
		e.scheduler.Schedule(e.task(gen, func() { e.terminate(gen) }))
	}
	if e.delegate.ShouldPostponeRelaunch(item, install) {
		e.logger.Info("relaunch postponed", "version", item.VersionString)
		return
	}
	e.terminate(gen)
}

func (e *Engine) terminate(gen int) {
	e.driver.ShowSendingTerminationSignal()
	e.dismiss(gen)
}

func (e *Engine) dismiss(gen int) {
	e.driver.DismissUpdateInstallation()
	e.endSession(gen)
}

func (e *Engine) endSession(gen int) {
	e.mutex.Lock()
	if !e.inSession || e.generation != gen {
		e.mutex.Unlock()
		return
	}
	e.inSession = false
	e.mutex.Unlock()
	e.delegate.CanCheckForUpdatesDidChange(true)
}

// Checks returns the number of checks started.
func (e *Engine) Checks() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.checks
}

// Headers returns the HTTP headers last set.
func (e *Engine) Headers() map[string]string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return maps.Clone(e.headers)
}

// Settings returns the engine properties last applied.
func (e *Engine) Settings() engine.Settings {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.settings
}

// PermissionResponses returns every permission answer received.
func (e *Engine) PermissionResponses() []engine.PermissionResponse {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return slices.Clone(e.permissions)
}
