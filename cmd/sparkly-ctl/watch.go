package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/pddg/sparkly/internal/client/bridgeclient"
	"github.com/pddg/sparkly/internal/protocol"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var until []string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the events published by the agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range until {
				if !slices.Contains(protocol.EventTypes, t) {
					return fmt.Errorf("unknown event type %q", t)
				}
			}
			w := cmd.OutOrStdout()
			err := opts.client().Watch(cmd.Context(), func(e protocol.Event) error {
				if err := printEvent(w, opts.output, e); err != nil {
					return err
				}
				if slices.Contains(until, e.Type()) {
					return bridgeclient.ErrStopWatching
				}
				return nil
			})
			if err != nil && cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&until, "until", nil, "stop after the first event of one of these types")
	return cmd
}

func printEvent(w io.Writer, output string, e protocol.Event) error {
	if output == "json" {
		data, err := protocol.MarshalEvent(e)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	switch e := e.(type) {
	case protocol.CanCheckForUpdates:
		_, err := fmt.Fprintf(w, "%s %t\n", e.Type(), e.Value)
		return err
	case protocol.UpdateCheck:
		stage := protocol.StageOf(e.State)
		_, err := fmt.Fprintf(w, "%s %s\n", e.Type(), describeState(stage, e.State))
		return err
	case protocol.Failure:
		_, err := fmt.Fprintf(w, "%s %s\n", e.Type(), e.Info.Error())
		return err
	case protocol.UpdateInstalledAndRelaunched:
		_, err := fmt.Fprintf(w, "%s %t\n", e.Type(), e.Relaunched)
		return err
	default:
		_, err := fmt.Fprintln(w, e.Type())
		return err
	}
}
