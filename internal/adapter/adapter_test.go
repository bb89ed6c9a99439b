package adapter_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddg/sparkly/internal/adapter"
	"github.com/pddg/sparkly/internal/callback"
	"github.com/pddg/sparkly/internal/engine"
	"github.com/pddg/sparkly/internal/policy"
	"github.com/pddg/sparkly/internal/protocol"
)

type recorder struct {
	mutex  sync.Mutex
	events []protocol.Event
}

func (r *recorder) Publish(e protocol.Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) take() []protocol.Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := r.events
	r.events = nil
	return out
}

func setup(t *testing.T, p engine.Policy) (*adapter.Adapter, *callback.Registry, *recorder) {
	t.Helper()
	if p == nil {
		p = policy.Default()
	}
	reg := callback.NewRegistry()
	rec := &recorder{}
	return adapter.New(t.Context(), reg, rec, p), reg, rec
}

var item = engine.AppcastItem{
	VersionString: "2.0",
	Title:         "Version 2.0",
	ContentLength: 4,
	Properties:    map[string]any{"channel": "beta"},
}

func Test_Adapter_UserInitiatedCheck(t *testing.T) {
	t.Parallel()
	// Setup
	a, reg, rec := setup(t, nil)
	cancelled := 0

	// Exercise
	a.ShowUserInitiatedUpdateCheck(func() { cancelled++ })

	// Verify
	assert.Equal(t, []protocol.Event{protocol.UpdateCheck{State: protocol.Checking{}}}, rec.take())
	assert.Equal(t, callback.KindCancel, reg.Kind())
	assert.True(t, reg.InvokeCancel())
	assert.Equal(t, 1, cancelled)
}

func Test_Adapter_UpdateFound(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		choice protocol.Choice
		want   engine.Choice
	}{
		{choice: protocol.ChoiceSkip, want: engine.ChoiceSkip},
		{choice: protocol.ChoiceInstall, want: engine.ChoiceInstall},
		{choice: protocol.ChoiceDismiss, want: engine.ChoiceDismiss},
	}
	for _, tc := range testCases {
		t.Run(string(tc.choice), func(t *testing.T) {
			t.Parallel()
			// Setup
			a, reg, rec := setup(t, nil)
			var got []engine.Choice

			// Exercise
			a.ShowUpdateFound(item, engine.UserUpdateState{Stage: engine.UserUpdateStageDownloaded}, func(c engine.Choice) {
				got = append(got, c)
			})

			// Verify
			events := rec.take()
			require.Len(t, events, 1)
			found := events[0].(protocol.UpdateCheck).State.(protocol.Found)
			assert.Equal(t, "2.0", found.Update.VersionString)
			assert.Equal(t, uint64(4), found.Update.ContentLength)
			assert.Equal(t, map[string]any{"channel": "beta"}, found.Update.Properties)
			assert.Equal(t, protocol.UserUpdateState{Stage: protocol.UpdateStageDownloaded}, found.State)
			require.True(t, reg.InvokeReply(tc.choice))
			assert.Equal(t, []engine.Choice{tc.want}, got)
		})
	}
}

func Test_Adapter_UnknownStage(t *testing.T) {
	t.Parallel()
	// Setup
	a, reg, rec := setup(t, nil)
	reg.RegisterCancel(func() {})

	// Exercise
	a.ShowUpdateFound(item, engine.UserUpdateState{Stage: 42}, func(engine.Choice) {
		t.Error("reply must not be reachable")
	})

	// Verify
	assert.Empty(t, rec.take())
	assert.Equal(t, callback.KindCancel, reg.Kind(), "slot must be left untouched")
}

func Test_Adapter_Download(t *testing.T) {
	t.Parallel()
	// Setup
	a, reg, rec := setup(t, nil)
	a.ShowUpdateFound(item, engine.UserUpdateState{}, func(engine.Choice) {})
	rec.take()

	// Exercise
	a.ShowDownloadInitiated(func() {})
	a.ShowDownloadDidReceiveExpectedContentLength(4)
	a.ShowDownloadDidReceiveData(3)
	a.ShowDownloadDidReceiveData(1)
	a.ShowDownloadDidStartExtractingUpdate()
	a.ShowExtractionReceivedProgress(1.0)
	a.ShowInstallingUpdate()

	// Verify
	assert.Equal(t, []protocol.Event{
		protocol.UpdateCheck{State: protocol.Downloading{Total: 4, Completed: 0}},
		protocol.UpdateCheck{State: protocol.Downloading{Total: 4, Completed: 0}},
		protocol.UpdateCheck{State: protocol.Downloading{Total: 4, Completed: 3}},
		protocol.UpdateCheck{State: protocol.Downloading{Total: 4, Completed: 4}},
		protocol.UpdateCheck{State: protocol.Extracting{Completed: 0}},
		protocol.UpdateCheck{State: protocol.Extracting{Completed: 1}},
		protocol.UpdateCheck{State: protocol.Installing{}},
	}, rec.take())
	assert.Equal(t, callback.KindNone, reg.Kind(), "extraction clears the download cancel")
}

func Test_Adapter_DownloadContentLengthMismatch(t *testing.T) {
	t.Parallel()
	// Setup
	a, _, rec := setup(t, nil)
	a.ShowUpdateFound(item, engine.UserUpdateState{}, func(engine.Choice) {})
	a.ShowDownloadInitiated(func() {})
	rec.take()

	// Exercise
	a.ShowDownloadDidReceiveExpectedContentLength(10)
	a.ShowDownloadDidReceiveData(8)

	// Verify
	assert.Equal(t, []protocol.Event{
		protocol.UpdateCheck{State: protocol.Downloading{Total: 4, Completed: 0}},
		protocol.UpdateCheck{State: protocol.Downloading{Total: 4, Completed: 4}},
	}, rec.take(), "the first total is kept and progress is clamped to it")
}

func Test_Adapter_DownloadUnknownLength(t *testing.T) {
	t.Parallel()
	// Setup
	a, _, rec := setup(t, nil)
	a.ShowUpdateFound(engine.AppcastItem{VersionString: "2.0"}, engine.UserUpdateState{}, func(engine.Choice) {})
	rec.take()

	// Exercise
	a.ShowDownloadInitiated(func() {})
	a.ShowDownloadDidReceiveData(2)
	a.ShowDownloadDidReceiveExpectedContentLength(6)

	// Verify
	assert.Equal(t, []protocol.Event{
		protocol.UpdateCheck{State: protocol.Downloading{Total: 0, Completed: 0}},
		protocol.UpdateCheck{State: protocol.Downloading{Total: 0, Completed: 2}},
		protocol.UpdateCheck{State: protocol.Downloading{Total: 6, Completed: 2}},
	}, rec.take())
}

func Test_Adapter_Errors(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		err  error
		want protocol.ErrorInfo
	}{
		{
			name: "engine error",
			err:  &engine.Error{Domain: "SUSparkleErrorDomain", Code: 1001, Message: "no network"},
			want: protocol.ErrorInfo{Domain: "SUSparkleErrorDomain", Code: 1001, Message: "no network"},
		},
		{
			name: "wrapped engine error",
			err:  fmt.Errorf("check: %w", &engine.Error{Domain: "d", Code: 7, Message: "m"}),
			want: protocol.ErrorInfo{Domain: "d", Code: 7, Message: "m"},
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: protocol.ErrorInfo{Message: "boom"},
		},
		{
			name: "nil error",
			err:  nil,
			want: protocol.ErrorInfo{Message: "unknown error"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// Setup
			a, reg, rec := setup(t, nil)
			acked := false

			// Exercise
			a.ShowUpdaterError(tc.err, func() { acked = true })

			// Verify
			assert.Equal(t, []protocol.Event{protocol.Failure{Info: tc.want}}, rec.take())
			assert.True(t, reg.InvokeAcknowledge())
			assert.True(t, acked)
		})
	}
	t.Run("not found is a failure", func(t *testing.T) {
		t.Parallel()
		a, reg, rec := setup(t, nil)
		a.ShowUpdateNotFound(errors.New("you're up to date"), func() {})
		assert.Equal(t, []protocol.Event{protocol.Failure{Info: protocol.ErrorInfo{Message: "you're up to date"}}}, rec.take())
		assert.Equal(t, callback.KindAcknowledge, reg.Kind())
	})
	t.Run("abort", func(t *testing.T) {
		t.Parallel()
		a, reg, rec := setup(t, nil)
		a.DidAbortWithError(errors.New("aborted"))
		assert.Equal(t, []protocol.Event{protocol.Failure{Info: protocol.ErrorInfo{Message: "aborted"}}}, rec.take())
		assert.Equal(t, callback.KindNone, reg.Kind())
	})
}

func Test_Adapter_Permission(t *testing.T) {
	t.Parallel()
	// Setup
	a, reg, rec := setup(t, nil)
	var got []engine.PermissionResponse

	// Exercise
	a.ShowPermissionRequest(engine.PermissionRequest{}, func(resp engine.PermissionResponse) {
		got = append(got, resp)
	})
	first := reg.InvokePermission(protocol.PermissionResponse{AutomaticallyCheck: true, SendSystemProfile: true})
	second := reg.InvokePermission(protocol.PermissionResponse{})

	// Verify
	assert.Equal(t, []protocol.Event{protocol.PermissionRequest{}}, rec.take())
	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, []engine.PermissionResponse{{AutomaticUpdateChecks: true, SendSystemProfile: true}}, got)
}

func Test_Adapter_ReadyAndRelaunch(t *testing.T) {
	t.Parallel()
	// Setup
	a, reg, rec := setup(t, nil)
	var got engine.Choice = -1

	// Exercise
	a.ShowReadyToInstallAndRelaunch(func(c engine.Choice) { got = c })
	require.True(t, reg.InvokeReply(protocol.ChoiceInstall))
	a.ShowSendingTerminationSignal()
	a.ShowUpdateInstalledAndRelaunched(true, func() {})

	// Verify
	assert.Equal(t, engine.ChoiceInstall, got)
	assert.Equal(t, []protocol.Event{
		protocol.UpdateCheck{State: protocol.ReadyToRelaunch{}},
		protocol.TerminationSignal{},
		protocol.UpdateInstalledAndRelaunched{Relaunched: true},
	}, rec.take())
	assert.Equal(t, callback.KindAcknowledge, reg.Kind())
}

func Test_Adapter_PassThroughEvents(t *testing.T) {
	t.Parallel()
	// Setup
	a, reg, rec := setup(t, nil)
	reg.RegisterCancel(func() {})

	// Exercise
	a.ShowUpdateReleaseNotes(engine.DownloadData{Data: []byte("<h1>2.0</h1>"), URL: "https://example.com/notes", MIMEType: "text/html"})
	a.ShowUpdateInFocus()
	a.CanCheckForUpdatesDidChange(false)
	a.ShowUpdateReleaseNotesFailedToDownload(errors.New("unsupported"))
	a.DismissUpdateInstallation()

	// Verify
	assert.Equal(t, []protocol.Event{
		protocol.ShowReleaseNotes{Data: protocol.DownloadData{Bytes: []byte("<h1>2.0</h1>"), URL: "https://example.com/notes", MIMEType: "text/html"}},
		protocol.FocusUpdate{},
		protocol.CanCheckForUpdates{Value: false},
		protocol.DismissInstallation{},
	}, rec.take())
	assert.Equal(t, callback.KindNone, reg.Kind())
}

func Test_Adapter_Policy(t *testing.T) {
	t.Parallel()
	// Setup
	p := &policy.Static{
		MayCheck:            true,
		AllowedProfileKeys:  []string{"osVersion"},
		Feed:                "https://example.com/appcast.xml",
		Parameters:          map[string]string{"b": "2", "a": "1"},
		Password:            "secret",
		PostponeRelaunch:    true,
		RelaunchApplication: true,
	}
	a, _, rec := setup(t, p)

	// Exercise & Verify
	assert.True(t, a.MayCheckForUpdates())
	assert.Equal(t, []string{"osVersion"}, a.AllowedSystemProfileKeys())
	assert.Equal(t, "https://example.com/appcast.xml", a.FeedURL())
	assert.Equal(t, []map[string]string{{"key": "a", "value": "1"}, {"key": "b", "value": "2"}}, a.FeedParameters(true))
	assert.Equal(t, "secret", a.DecryptionPassword())
	assert.False(t, a.ShouldAllowInstallerInteraction(engine.UpdateCheckUserInitiated))
	assert.True(t, a.ShouldPostponeRelaunch(item, func() {}))
	assert.False(t, a.WillInstallUpdateOnQuit(item, func() {}))
	assert.False(t, a.ShouldDownloadReleaseNotes())
	assert.True(t, a.ShouldRelaunchApplication())
	assert.False(t, a.ShouldPromptForPermission())
	assert.Equal(t, engine.StandardComparator{}, a.VersionComparator())
	_, ok := a.BestValidUpdate(engine.Appcast{})
	assert.False(t, ok)

	// Notifications without an event
	a.DidFinishLoadingAppcast(engine.Appcast{Items: []engine.AppcastItem{item}})
	a.WillScheduleUpdateCheck(time.Hour)
	a.DidFindValidUpdate(item)
	a.DidNotFindUpdate(errors.New("up to date"))
	a.WillInstallUpdate(item)
	assert.Empty(t, rec.take())
}

func Test_Adapter_CustomComparator(t *testing.T) {
	t.Parallel()
	p := policy.Default()
	p.Comparator = engine.VersionComparatorFunc(func(a, b string) int { return 0 })
	a, _, _ := setup(t, p)
	assert.Equal(t, 0, a.VersionComparator().CompareVersions("1.0", "2.0"))
}

func Test_Settings(t *testing.T) {
	t.Parallel()
	// Setup
	s := protocol.Settings{
		AutomaticallyCheckForUpdates: true,
		UpdateInterval:               protocol.UpdateIntervalBiweekly,
		SendSystemProfile:            true,
	}

	// Exercise
	native := adapter.NativeSettings(s)

	// Verify
	assert.Equal(t, engine.Settings{
		AutomaticallyChecksForUpdates: true,
		UpdateCheckInterval:           14 * 24 * time.Hour,
		SendsSystemProfile:            true,
	}, native)
	assert.Equal(t, s, adapter.SettingsFromNative(native))
}

func Test_NativeHeaders(t *testing.T) {
	t.Parallel()
	in := map[string]string{"Accept": "application/octet-stream"}
	out := adapter.NativeHeaders(in)
	out["Accept"] = "changed"
	assert.Equal(t, "application/octet-stream", in["Accept"], "headers must be copied")
	assert.NotNil(t, adapter.NativeHeaders(nil))
}
