package e2e_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddg/sparkly/internal/engine"
	"github.com/pddg/sparkly/internal/mockengine"
	"github.com/pddg/sparkly/internal/protocol"
)

func Test_Agent_InstallUpdate(t *testing.T) {
	t.Parallel()
	// Setup
	a := setup(t)
	events := a.watch(t)
	a.send(t, protocol.StartEngine{})
	require.Equal(t, protocol.CanCheckForUpdates{Value: true}, next(t, events))

	// Exercise
	a.send(t, protocol.CheckForUpdates{})
	checking := until(t, events, atStage(protocol.StageFound))
	a.send(t, protocol.Reply{Choice: protocol.ChoiceInstall})
	installing := until(t, events, atStage(protocol.StageReadyToRelaunch))
	a.send(t, protocol.Reply{Choice: protocol.ChoiceInstall})
	relaunch := until(t, events, func(e protocol.Event) bool {
		return e == protocol.CanCheckForUpdates{Value: true}
	})

	// Verify
	assert.Equal(t, protocol.CanCheckForUpdates{Value: false}, checking[0])
	assert.Equal(t, []protocol.Stage{protocol.StageChecking, protocol.StageFound}, stages(checking))
	found := checking[len(checking)-1].(protocol.UpdateCheck).State.(protocol.Found)
	assert.Equal(t, mockengine.MockItem.VersionString, found.Update.VersionString)

	assert.Equal(t, []protocol.Stage{
		protocol.StageDownloading,
		protocol.StageDownloading,
		protocol.StageDownloading,
		protocol.StageExtracting,
		protocol.StageExtracting,
		protocol.StageInstalling,
		protocol.StageReadyToRelaunch,
	}, stages(installing))
	assert.Equal(t, protocol.Downloading{Total: 4, Completed: 4}, installing[2].(protocol.UpdateCheck).State)

	assert.Equal(t, []protocol.Event{
		protocol.TerminationSignal{},
		protocol.DismissInstallation{},
		protocol.CanCheckForUpdates{Value: true},
	}, relaunch)

	status, err := a.client.Status(testContext(t))
	require.NoError(t, err)
	assert.True(t, status.Started)
	assert.Equal(t, protocol.StageIdle, status.Stage)
	assert.Nil(t, status.State)
	assert.Equal(t, "none", status.PendingCallback)
	assert.Equal(t, 1, a.engine.Checks())

	assert.Eventually(t, func() bool {
		return contains(a.metrics(t),
			`sparkly_events_total{type="terminationSignal"} 1`,
			`sparkly_update_check_stage_info{stage="idle"} 1`,
			`sparkly_can_check_for_updates 1`,
		)
	}, eventTimeout, stepInterval)
}

func Test_Agent_CancelFoundUpdate(t *testing.T) {
	t.Parallel()
	// Setup
	a := setup(t)
	events := a.watch(t)
	a.send(t, protocol.StartEngine{})
	next(t, events)
	a.send(t, protocol.CheckForUpdates{})
	until(t, events, atStage(protocol.StageFound))

	// Exercise
	a.send(t, protocol.CheckForUpdates{})
	focus := next(t, events)
	a.send(t, protocol.Cancel{})

	// Verify
	assert.Equal(t, protocol.FocusUpdate{}, focus)
	assert.Equal(t, protocol.DismissInstallation{}, next(t, events))
	assert.Equal(t, protocol.CanCheckForUpdates{Value: true}, next(t, events))

	status, err := a.client.Status(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, protocol.StageIdle, status.Stage)
	assert.True(t, status.CanCheckForUpdates)
}

func Test_Agent_Failure(t *testing.T) {
	t.Parallel()
	// Setup
	failure := &engine.Error{Domain: "SUSparkleErrorDomain", Code: 2001, Message: "The update feed could not be loaded."}
	a := setup(t, mockengine.WithFailure(5*stepInterval, failure))
	events := a.watch(t)
	a.send(t, protocol.StartEngine{})
	next(t, events)

	// Exercise
	a.send(t, protocol.CheckForUpdates{})
	failed := until(t, events, func(e protocol.Event) bool {
		_, ok := e.(protocol.Failure)
		return ok
	})
	a.send(t, protocol.Cancel{})

	// Verify
	assert.Equal(t, []protocol.Event{
		protocol.CanCheckForUpdates{Value: false},
		protocol.UpdateCheck{State: protocol.Checking{}},
		protocol.Failure{Info: protocol.ErrorInfo{Domain: failure.Domain, Code: failure.Code, Message: failure.Message}},
	}, failed)
	assert.Equal(t, protocol.CanCheckForUpdates{Value: true}, next(t, events))

	assert.Eventually(t, func() bool {
		return contains(a.metrics(t),
			`sparkly_failures_total{code="2001",domain="SUSparkleErrorDomain"} 1`,
			`sparkly_events_total{type="failure"} 1`,
		)
	}, eventTimeout, stepInterval)
}

func Test_Agent_Settings(t *testing.T) {
	t.Parallel()
	// Setup
	a := setup(t)
	want := protocol.Settings{
		AutomaticallyCheckForUpdates: true,
		UpdateInterval:               protocol.UpdateIntervalWeekly,
		AutomaticallyDownloadUpdates: true,
		SendSystemProfile:            false,
	}

	// Exercise
	a.send(t, protocol.UpdateSettings{Settings: want})

	// Verify
	assert.Eventually(t, func() bool {
		got, err := a.client.Settings(testContext(t))
		return err == nil && *got == want
	}, eventTimeout, stepInterval)
	assert.True(t, a.engine.Settings().AutomaticallyChecksForUpdates)
	assert.Equal(t, 7*24*time.Hour, a.engine.Settings().UpdateCheckInterval)
}
