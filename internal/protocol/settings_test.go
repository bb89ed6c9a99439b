package protocol_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddg/sparkly/internal/protocol"
)

func Test_UpdateInterval_Duration(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		interval protocol.UpdateInterval
		seconds  int64
	}{
		{interval: protocol.UpdateIntervalDaily, seconds: 86400},
		{interval: protocol.UpdateIntervalWeekly, seconds: 604800},
		{interval: protocol.UpdateIntervalBiweekly, seconds: 1209600},
		{interval: protocol.UpdateIntervalMonthly, seconds: 2592000},
	}
	for _, tc := range testCases {
		t.Run(string(tc.interval), func(t *testing.T) {
			t.Parallel()
			// Exercise
			got := tc.interval.Duration()

			// Verify
			assert.Equal(t, tc.seconds, int64(got/time.Second))
			assert.Equal(t, tc.interval, protocol.IntervalFromDuration(got), "round trip must be stable")
		})
	}
	t.Run("unknown interval is daily", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 24*time.Hour, protocol.UpdateInterval("hourly").Duration())
	})
}

func Test_IntervalFromDuration(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		d    time.Duration
		want protocol.UpdateInterval
	}{
		{name: "zero", d: 0, want: protocol.UpdateIntervalDaily},
		{name: "one hour", d: time.Hour, want: protocol.UpdateIntervalDaily},
		{name: "just over a day", d: 90000 * time.Second, want: protocol.UpdateIntervalWeekly},
		{name: "ten days", d: 10 * 24 * time.Hour, want: protocol.UpdateIntervalBiweekly},
		{name: "fifteen days", d: 15 * 24 * time.Hour, want: protocol.UpdateIntervalMonthly},
		{name: "a year", d: 365 * 24 * time.Hour, want: protocol.UpdateIntervalMonthly},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, protocol.IntervalFromDuration(tc.d))
		})
	}
}

func Test_ParseUpdateInterval(t *testing.T) {
	t.Parallel()
	for _, i := range protocol.UpdateIntervals {
		got, err := protocol.ParseUpdateInterval(string(i))
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}
	_, err := protocol.ParseUpdateInterval("fortnightly")
	assert.Error(t, err)
}

func Test_DefaultSettings(t *testing.T) {
	t.Parallel()
	assert.Equal(t, protocol.Settings{
		AutomaticallyCheckForUpdates: true,
		UpdateInterval:               protocol.UpdateIntervalDaily,
	}, protocol.DefaultSettings())
}
