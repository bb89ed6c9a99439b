package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pddg/sparkly/internal/protocol"
)

func sendCmd(opts *rootOptions, use, short string, action protocol.Action) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.client().Send(cmd.Context(), action)
		},
	}
}

func newStartCmd(opts *rootOptions) *cobra.Command {
	return sendCmd(opts, "start", "Start the update engine", protocol.StartEngine{})
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return sendCmd(opts, "check", "Start a user initiated update check", protocol.CheckForUpdates{})
}

func newCancelCmd(opts *rootOptions) *cobra.Command {
	return sendCmd(opts, "cancel", "Cancel the current update check", protocol.Cancel{})
}

func newReplyCmd(opts *rootOptions) *cobra.Command {
	var validArgs []string
	for _, c := range protocol.Choices {
		validArgs = append(validArgs, string(c))
	}
	return &cobra.Command{
		Use:       "reply {skip|install|dismiss}",
		Short:     "Answer a found update or a pending relaunch",
		Args:      cobra.ExactArgs(1),
		ValidArgs: validArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			choice, err := protocol.ParseChoice(args[0])
			if err != nil {
				return err
			}
			return opts.client().Send(cmd.Context(), protocol.Reply{Choice: choice})
		},
	}
}

func newPermissionCmd(opts *rootOptions) *cobra.Command {
	var action protocol.SetPermission
	cmd := &cobra.Command{
		Use:   "permission",
		Short: "Answer a pending permission request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.client().Send(cmd.Context(), action)
		},
	}
	cmd.Flags().BoolVar(&action.AutomaticallyCheck, "automatic-checks", false, "allow automatic update checks")
	cmd.Flags().BoolVar(&action.SendSystemProfile, "send-profile", false, "allow sending the system profile")
	return cmd
}

func newHeadersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "headers [KEY=VALUE]...",
		Short: "Replace the HTTP headers sent by the engine",
		Long:  `Headers replaces every custom HTTP header. Without arguments all custom headers are removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			headers, err := parseHeaders(args)
			if err != nil {
				return err
			}
			return opts.client().Send(cmd.Context(), protocol.SetHTTPHeaders{Headers: headers})
		},
	}
}

func parseHeaders(args []string) (map[string]string, error) {
	headers := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q: expected KEY=VALUE", arg)
		}
		headers[key] = value
	}
	return headers, nil
}
