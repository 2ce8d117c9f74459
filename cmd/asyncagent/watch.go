package main

import (
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <run-id>",
	Short: "Stream run events until the final event",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := cmdContext()
		client, err := newClient()
		if err != nil {
			return err
		}
		return streamRun(ctx, client, args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
