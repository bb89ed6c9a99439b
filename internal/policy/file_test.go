package policy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pddg/sparkly/internal/engine"
	"github.com/pddg/sparkly/internal/policy"
	"github.com/pddg/sparkly/internal/protocol"
)

const yamlPolicy = `
# policy for the staging channel
policy:
  may_check: true
  feed_url: https://example.com/appcast.xml
  feed_parameters:
    channel: beta
  decryption_password: ${SPARKLY_TEST_PASSWORD:-secret}
  allow_installer_interaction: false
  postpone_relaunch: false
  install_on_quit: true
  download_release_notes: true
  relaunch_application: true
  prompt_for_permission: true
settings:
  automatically_check_for_updates: false
  update_interval: weekly
  automatically_download_updates: true
  send_system_profile: false
`

const tomlPolicy = `
[policy]
may_check = true
feed_url = "https://example.com/appcast.xml"
decryption_password = "${SPARKLY_TEST_PASSWORD:-secret}"
allow_installer_interaction = false
install_on_quit = true
download_release_notes = true
relaunch_application = true
prompt_for_permission = true

[policy.feed_parameters]
channel = "beta"

[settings]
automatically_check_for_updates = false
update_interval = "weekly"
automatically_download_updates = true
send_system_profile = false
`

func Test_DetectFormat(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		path    string
		content string
		want    policy.Format
	}{
		{name: "yaml extension", path: "policy.yaml", want: policy.FormatYAML},
		{name: "yml extension", path: "policy.yml", want: policy.FormatYAML},
		{name: "toml extension", path: "policy.toml", want: policy.FormatTOML},
		{name: "json extension", path: "policy.json", want: policy.FormatJSON},
		{name: "yaml content", path: "policy", content: yamlPolicy, want: policy.FormatYAML},
		{name: "toml content", path: "policy", content: tomlPolicy, want: policy.FormatTOML},
		{name: "json content", path: "policy", content: `{"policy": {}}`, want: policy.FormatJSON},
		{name: "empty", path: "policy", content: "", want: policy.FormatUnknown},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, policy.DetectFormat(tc.path, []byte(tc.content)))
		})
	}
}

func Test_Parse(t *testing.T) {
	t.Parallel()
	wantSettings := &protocol.Settings{
		AutomaticallyCheckForUpdates: false,
		UpdateInterval:               protocol.UpdateIntervalWeekly,
		AutomaticallyDownloadUpdates: true,
	}
	testCases := []struct {
		name    string
		content string
		format  policy.Format
	}{
		{name: "yaml", content: yamlPolicy, format: policy.FormatYAML},
		{name: "toml", content: tomlPolicy, format: policy.FormatTOML},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Exercise
			f, err := policy.Parse([]byte(tc.content), tc.format)

			// Verify
			require.NoError(t, err)
			assert.True(t, f.Policy.MayCheckForUpdates())
			assert.Equal(t, "https://example.com/appcast.xml", f.Policy.FeedURL())
			assert.Equal(t, "secret", f.Policy.DecryptionPassword())
			assert.False(t, f.Policy.AllowInstallerInteraction)
			assert.True(t, f.Policy.InstallOnQuit)
			assert.True(t, f.Policy.ShouldPromptForPermission())
			assert.Equal(t, []map[string]string{{"key": "channel", "value": "beta"}}, f.Policy.FeedParameters(false))
			assert.Equal(t, wantSettings, f.Settings)
		})
	}
}

func Test_Parse_Defaults(t *testing.T) {
	t.Parallel()
	// Exercise
	f, err := policy.Parse([]byte(`{}`), policy.FormatJSON)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, policy.Default(), f.Policy)
	assert.Equal(t, protocol.DefaultSettings(), *f.Settings)
}

func Test_Parse_Invalid(t *testing.T) {
	t.Parallel()
	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()
		_, err := policy.Parse([]byte("anything"), policy.FormatUnknown)
		assert.ErrorIs(t, err, policy.ErrUnsupportedFormat)
	})
	t.Run("broken yaml", func(t *testing.T) {
		t.Parallel()
		_, err := policy.Parse([]byte("policy: [unclosed"), policy.FormatYAML)
		assert.Error(t, err)
	})
	t.Run("unknown interval", func(t *testing.T) {
		t.Parallel()
		_, err := policy.Parse([]byte(`{"settings": {"update_interval": "hourly"}}`), policy.FormatJSON)
		assert.Error(t, err)
	})
}

func Test_Load(t *testing.T) {
	t.Setenv("SPARKLY_TEST_PASSWORD", "from-env")
	// Setup
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlPolicy), 0o600))

	// Exercise
	f, err := policy.Load(path)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, "from-env", f.Policy.DecryptionPassword())

	_, err = policy.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func Test_Static(t *testing.T) {
	t.Parallel()
	p := policy.Default()
	assert.Nil(t, p.VersionComparator(), "nil selects the standard comparator")
	assert.Nil(t, p.FeedParameters(true))
	_, ok := p.BestValidUpdate(engine.Appcast{Items: []engine.AppcastItem{{VersionString: "1.0"}}})
	assert.False(t, ok)
}
