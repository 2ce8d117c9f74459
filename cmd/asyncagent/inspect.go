package main

import (
	"github.com/spf13/cobra"

	"github.com/ugmurthy/asyncAgent/types"
)

var (
	flagStatus      string
	flagLimit       int
	flagCursor      string
	flagListSession string
)

var getCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Fetch the current snapshot of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := cmdContext()
		client, err := newClient()
		if err != nil {
			return err
		}
		run, err := client.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(run)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := cmdContext()
		client, err := newClient()
		if err != nil {
			return err
		}
		page, err := client.ListRuns(ctx, &types.ListRunsPayload{
			Status:    types.RunStatus(flagStatus),
			SessionID: flagListSession,
			Limit:     flagLimit,
			Cursor:    flagCursor,
		})
		if err != nil {
			return err
		}
		return printJSON(page)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <run-id>",
	Short: "Request cancellation of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := cmdContext()
		client, err := newClient()
		if err != nil {
			return err
		}
		run, err := client.CancelRun(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(run)
	},
}

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Fetch the agent discovery card",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := cmdContext()
		client, err := newClient()
		if err != nil {
			return err
		}
		card, err := client.AgentCard(ctx)
		if err != nil {
			return err
		}
		return printJSON(card)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe service liveness",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := cmdContext()
		client, err := newClient()
		if err != nil {
			return err
		}
		h, err := client.Health(ctx)
		if err != nil {
			return err
		}
		return printJSON(h)
	},
}

func init() {
	rootCmd.AddCommand(getCmd, listCmd, cancelCmd, cardCmd, healthCmd)

	listCmd.Flags().StringVar(&flagStatus, "status", "", "filter by run status")
	listCmd.Flags().StringVar(&flagListSession, "session", "", "filter by session id")
	listCmd.Flags().IntVar(&flagLimit, "limit", 0, "page size (server default when 0)")
	listCmd.Flags().StringVar(&flagCursor, "cursor", "", "resume listing from a previous nextCursor")
}
