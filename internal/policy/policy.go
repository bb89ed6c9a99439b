package policy

import (
	"slices"
	"sort"

	"github.com/pddg/sparkly/internal/engine"
)

var _ engine.Policy = (*Static)(nil)

// Static is a fixed developer policy, usually loaded from a policy file.
type Static struct {
	MayCheck                  bool              `json:"may_check" yaml:"may_check" toml:"may_check"`
	AllowedProfileKeys        []string          `json:"allowed_system_profile_keys" yaml:"allowed_system_profile_keys" toml:"allowed_system_profile_keys"`
	Feed                      string            `json:"feed_url" yaml:"feed_url" toml:"feed_url"`
	Parameters                map[string]string `json:"feed_parameters" yaml:"feed_parameters" toml:"feed_parameters"`
	Password                  string            `json:"decryption_password" yaml:"decryption_password" toml:"decryption_password"`
	AllowInstallerInteraction bool              `json:"allow_installer_interaction" yaml:"allow_installer_interaction" toml:"allow_installer_interaction"`
	PostponeRelaunch          bool              `json:"postpone_relaunch" yaml:"postpone_relaunch" toml:"postpone_relaunch"`
	InstallOnQuit             bool              `json:"install_on_quit" yaml:"install_on_quit" toml:"install_on_quit"`
	DownloadReleaseNotes      bool              `json:"download_release_notes" yaml:"download_release_notes" toml:"download_release_notes"`
	RelaunchApplication       bool              `json:"relaunch_application" yaml:"relaunch_application" toml:"relaunch_application"`
	PromptForPermission       bool              `json:"prompt_for_permission" yaml:"prompt_for_permission" toml:"prompt_for_permission"`

	// Comparator overrides the version comparison. Nil uses the standard one.
	Comparator engine.VersionComparator `json:"-" yaml:"-" toml:"-"`
}

// Default returns the policy used when no policy file is given.
func Default() *Static {
	return &Static{
		MayCheck:                  true,
		AllowInstallerInteraction: true,
		DownloadReleaseNotes:      true,
		RelaunchApplication:       true,
	}
}

func (p *Static) MayCheckForUpdates() bool {
	return p.MayCheck
}

func (p *Static) AllowedSystemProfileKeys() []string {
	return slices.Clone(p.AllowedProfileKeys)
}

func (p *Static) FeedURL() string {
	return p.Feed
}

// FeedParameters returns the extra feed query parameters as key/value entries
// sorted by key. They are sent regardless of the system profile opt-in.
func (p *Static) FeedParameters(sendingSystemProfile bool) []map[string]string {
	if len(p.Parameters) == 0 {
		return nil
	}
	keys := make([]string, 0, len(p.Parameters))
	for k := range p.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		params = append(params, map[string]string{"key": k, "value": p.Parameters[k]})
	}
	return params
}

func (p *Static) BestValidUpdate(appcast engine.Appcast) (engine.AppcastItem, bool) {
	return engine.AppcastItem{}, false
}

func (p *Static) VersionComparator() engine.VersionComparator {
	return p.Comparator
}

func (p *Static) DecryptionPassword() string {
	return p.Password
}

func (p *Static) ShouldAllowInstallerInteraction(check engine.UpdateCheck) bool {
	return p.AllowInstallerInteraction
}

func (p *Static) ShouldPostponeRelaunch(item engine.AppcastItem, install func()) bool {
	return p.PostponeRelaunch
}

func (p *Static) WillInstallUpdateOnQuit(item engine.AppcastItem, install func()) bool {
	return p.InstallOnQuit
}

func (p *Static) ShouldDownloadReleaseNotes() bool {
	return p.DownloadReleaseNotes
}

func (p *Static) ShouldRelaunchApplication() bool {
	return p.RelaunchApplication
}

func (p *Static) ShouldPromptForPermission() bool {
	return p.PromptForPermission
}
