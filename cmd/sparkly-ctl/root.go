package main

import (
	"os"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/spf13/cobra"

	"github.com/pddg/sparkly/internal/client/bridgeclient"
	"github.com/pddg/sparkly/internal/logging"
)

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

type rootOptions struct {
	agentURL  string
	logLevel  string
	logFormat string
	output    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "sparkly-ctl",
		Short: "Control a sparkly-agent",
		Long: `sparkly-ctl sends actions to a running sparkly-agent and shows the events it publishes.

Actions never return a result. Use "watch" to observe what happens.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.Configure(opts.logLevel, opts.logFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cmd.SetContext(logging.NewContext(cmd.Context(), logger))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.agentURL, "agent-url", getEnv("SPARKLY_CTL_AGENT_URL", "http://localhost:8080"), "URL of the sparkly-agent")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", getEnv("SPARKLY_CTL_LOG_LEVEL", "warn"), "log level")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", getEnv("SPARKLY_CTL_LOG_FORMAT", "text"), "log format")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "Output format: text, json")
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newStartCmd(opts))
	rootCmd.AddCommand(newCheckCmd(opts))
	rootCmd.AddCommand(newCancelCmd(opts))
	rootCmd.AddCommand(newReplyCmd(opts))
	rootCmd.AddCommand(newPermissionCmd(opts))
	rootCmd.AddCommand(newHeadersCmd(opts))
	rootCmd.AddCommand(newSettingsCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	return rootCmd
}

func (o *rootOptions) client() *bridgeclient.Client {
	return bridgeclient.NewClient(cleanhttp.DefaultClient(), o.agentURL)
}
