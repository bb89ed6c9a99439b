package protocol

import (
	"fmt"
	"time"
)

// Settings are the user facing updater preferences.
type Settings struct {
	AutomaticallyCheckForUpdates bool           `json:"automatically_check_for_updates" yaml:"automatically_check_for_updates" toml:"automatically_check_for_updates"`
	UpdateInterval               UpdateInterval `json:"update_interval" yaml:"update_interval" toml:"update_interval"`
	AutomaticallyDownloadUpdates bool           `json:"automatically_download_updates" yaml:"automatically_download_updates" toml:"automatically_download_updates"`
	SendSystemProfile            bool           `json:"send_system_profile" yaml:"send_system_profile" toml:"send_system_profile"`
}

func DefaultSettings() Settings {
	return Settings{
		AutomaticallyCheckForUpdates: true,
		UpdateInterval:               UpdateIntervalDaily,
		AutomaticallyDownloadUpdates: false,
		SendSystemProfile:            false,
	}
}

// UpdateInterval is a preset for the automatic check interval.
type UpdateInterval string

const (
	UpdateIntervalDaily    UpdateInterval = "daily"
	UpdateIntervalWeekly   UpdateInterval = "weekly"
	UpdateIntervalBiweekly UpdateInterval = "biweekly"
	UpdateIntervalMonthly  UpdateInterval = "monthly"
)

var UpdateIntervals = []UpdateInterval{
	UpdateIntervalDaily,
	UpdateIntervalWeekly,
	UpdateIntervalBiweekly,
	UpdateIntervalMonthly,
}

const (
	day  = 24 * time.Hour
	week = 7 * day
	// A month is a fixed 30 days. Calendar months are not considered.
	month = 30 * day
)

// Duration returns the interval as a duration.
// An unknown interval is treated as daily.
func (i UpdateInterval) Duration() time.Duration {
	switch i {
	case UpdateIntervalWeekly:
		return week
	case UpdateIntervalBiweekly:
		return 2 * week
	case UpdateIntervalMonthly:
		return month
	default:
		return day
	}
}

// IntervalFromDuration maps a duration to the smallest enclosing preset.
func IntervalFromDuration(d time.Duration) UpdateInterval {
	switch {
	case d <= day:
		return UpdateIntervalDaily
	case d <= week:
		return UpdateIntervalWeekly
	case d <= 2*week:
		return UpdateIntervalBiweekly
	default:
		return UpdateIntervalMonthly
	}
}

// ParseUpdateInterval parses the textual form of an interval.
func ParseUpdateInterval(s string) (UpdateInterval, error) {
	for _, i := range UpdateIntervals {
		if string(i) == s {
			return i, nil
		}
	}
	return "", fmt.Errorf("protocol.ParseUpdateInterval: unknown interval %q", s)
}
