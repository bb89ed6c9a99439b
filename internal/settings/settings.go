package settings

import (
	"time"

	"github.com/pddg/sparkly/internal/protocol"
)

// Preference keys read by the update engine.
const (
	KeyAutomaticallyCheckForUpdates = "SUEnableAutomaticChecks"
	KeyUpdateInterval               = "SUScheduledCheckInterval"
	KeyAutomaticallyDownloadUpdates = "SUAutomaticallyUpdate"
	KeySendSystemProfile            = "SUSendProfileInfo"
)

// Store is a key-value preference store. ok is false for missing keys.
type Store interface {
	Bool(key string) (value bool, ok bool)
	Float64(key string) (value float64, ok bool)
	SetBool(key string, value bool)
	SetFloat64(key string, value float64)
}

// Load reads the settings from the store. Missing keys keep the defaults.
// The interval is stored in seconds and mapped to the smallest enclosing preset.
func Load(store Store) protocol.Settings {
	s := protocol.DefaultSettings()
	if v, ok := store.Bool(KeyAutomaticallyCheckForUpdates); ok {
		s.AutomaticallyCheckForUpdates = v
	}
	if v, ok := store.Float64(KeyUpdateInterval); ok && v > 0 {
		s.UpdateInterval = protocol.IntervalFromDuration(time.Duration(v * float64(time.Second)))
	}
	if v, ok := store.Bool(KeyAutomaticallyDownloadUpdates); ok {
		s.AutomaticallyDownloadUpdates = v
	}
	if v, ok := store.Bool(KeySendSystemProfile); ok {
		s.SendSystemProfile = v
	}
	return s
}

// Save writes every setting to the store.
func Save(store Store, s protocol.Settings) {
	store.SetBool(KeyAutomaticallyCheckForUpdates, s.AutomaticallyCheckForUpdates)
	store.SetFloat64(KeyUpdateInterval, s.UpdateInterval.Duration().Seconds())
	store.SetBool(KeyAutomaticallyDownloadUpdates, s.AutomaticallyDownloadUpdates)
	store.SetBool(KeySendSystemProfile, s.SendSystemProfile)
}
