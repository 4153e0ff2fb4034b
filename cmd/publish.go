package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/mqtt-test-client/core/publish"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Connect, publish and disconnect, waiting on each step",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), publish.Suspend)
	},
}

var publishCallbackCmd = &cobra.Command{
	Use:   "publish-callback",
	Short: "Connect, then publish and disconnect from the connect callback",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), publish.Callback)
	},
}

func init() {
	rootCmd.AddCommand(publishCmd, publishCallbackCmd)
}
