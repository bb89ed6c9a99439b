package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/pddg/sparkly/internal/client/bridgeclient"
	"github.com/pddg/sparkly/internal/protocol"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := opts.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), opts.output, status)
		},
	}
}

func printStatus(w io.Writer, output string, status *bridgeclient.Status) error {
	if output == "json" {
		state, err := protocol.MarshalState(status.State)
		if err != nil {
			return err
		}
		return json.NewEncoder(w).Encode(struct {
			Started            bool            `json:"started"`
			Stage              string          `json:"stage"`
			State              json.RawMessage `json:"state"`
			CanCheckForUpdates bool            `json:"can_check_for_updates"`
			PendingCallback    string          `json:"pending_callback"`
			SessionID          string          `json:"session_id,omitempty"`
		}{
			Started:            status.Started,
			Stage:              status.Stage.String(),
			State:              state,
			CanCheckForUpdates: status.CanCheckForUpdates,
			PendingCallback:    status.PendingCallback,
			SessionID:          status.SessionID,
		})
	}
	fmt.Fprintf(w, "Started:            %t\n", status.Started)
	fmt.Fprintf(w, "Stage:              %s\n", describeState(status.Stage, status.State))
	fmt.Fprintf(w, "Can check:          %t\n", status.CanCheckForUpdates)
	fmt.Fprintf(w, "Pending callback:   %s\n", status.PendingCallback)
	if status.SessionID != "" {
		fmt.Fprintf(w, "Session:            %s\n", status.SessionID)
	}
	return nil
}

func describeState(stage protocol.Stage, state protocol.UpdateCheckState) string {
	switch s := state.(type) {
	case protocol.Found:
		return fmt.Sprintf("%s (%s, %s)", stage, s.Update.VersionString, s.State.Stage)
	case protocol.Downloading:
		if s.Total == 0 {
			return fmt.Sprintf("%s (%.0f bytes)", stage, s.Completed)
		}
		return fmt.Sprintf("%s (%.0f/%.0f bytes)", stage, s.Completed, s.Total)
	case protocol.Extracting:
		return fmt.Sprintf("%s (%.0f%%)", stage, s.Completed*100)
	default:
		return stage.String()
	}
}

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	var (
		automaticChecks    bool
		interval           string
		automaticDownloads bool
		sendProfile        bool
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the user settings",
		Long:  `Without flags the stored settings are shown. With flags only the given settings are changed.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()
			current, err := client.Settings(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !slices.ContainsFunc([]string{"automatic-checks", "interval", "automatic-downloads", "send-profile"}, flags.Changed) {
				return printSettings(cmd.OutOrStdout(), opts.output, current)
			}
			next := *current
			if flags.Changed("automatic-checks") {
				next.AutomaticallyCheckForUpdates = automaticChecks
			}
			if flags.Changed("interval") {
				i, err := protocol.ParseUpdateInterval(interval)
				if err != nil {
					return err
				}
				next.UpdateInterval = i
			}
			if flags.Changed("automatic-downloads") {
				next.AutomaticallyDownloadUpdates = automaticDownloads
			}
			if flags.Changed("send-profile") {
				next.SendSystemProfile = sendProfile
			}
			return client.Send(cmd.Context(), protocol.UpdateSettings{Settings: next})
		},
	}
	cmd.Flags().BoolVar(&automaticChecks, "automatic-checks", false, "check for updates automatically")
	cmd.Flags().StringVar(&interval, "interval", "", "automatic check interval: daily, weekly, biweekly, monthly")
	cmd.Flags().BoolVar(&automaticDownloads, "automatic-downloads", false, "download updates automatically")
	cmd.Flags().BoolVar(&sendProfile, "send-profile", false, "send the system profile")
	return cmd
}

func printSettings(w io.Writer, output string, s *protocol.Settings) error {
	if output == "json" {
		return json.NewEncoder(w).Encode(s)
	}
	fmt.Fprintf(w, "Automatic checks:    %t\n", s.AutomaticallyCheckForUpdates)
	fmt.Fprintf(w, "Interval:            %s\n", s.UpdateInterval)
	fmt.Fprintf(w, "Automatic downloads: %t\n", s.AutomaticallyDownloadUpdates)
	fmt.Fprintf(w, "Send profile:        %t\n", s.SendSystemProfile)
	return nil
}
