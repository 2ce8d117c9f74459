package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"goa.design/clue/log"

	asyncagent "github.com/ugmurthy/asyncAgent"
	"github.com/ugmurthy/asyncAgent/types"
)

var (
	flagAgent   string
	flagSession string
	flagLabels  []string
	flagWait    bool
	flagStream  bool
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Submit a run and optionally wait for or stream its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := cmdContext()
		client, err := newClient()
		if err != nil {
			return err
		}

		payload := &types.CreateRunPayload{
			AgentID: flagAgent,
			Input:   types.UserMessage(args[0]),
			Labels:  parseLabels(flagLabels),
		}
		if flagSession != "" {
			payload.SessionID = &flagSession
		}

		run, err := client.CreateRun(ctx, payload)
		if err != nil {
			return err
		}
		log.Print(ctx, log.KV{K: "run", V: run.ID}, log.KV{K: "status", V: string(run.Status)})

		switch {
		case flagStream:
			return streamRun(ctx, client, run.ID)
		case flagWait:
			final, err := client.Wait(ctx, run.ID, asyncagent.WaitOptions{
				Interval:    time.Second,
				MaxInterval: 10 * time.Second,
			})
			if err != nil {
				return err
			}
			return printJSON(final)
		default:
			return printJSON(run)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&flagAgent, "agent", "a", "default", "agent id to run")
	runCmd.Flags().StringVarP(&flagSession, "session", "s", "", "session id grouping related runs")
	runCmd.Flags().StringArrayVarP(&flagLabels, "label", "l", nil, "run label as key=value (repeatable)")
	runCmd.Flags().BoolVarP(&flagWait, "wait", "w", false, "poll until the run reaches a terminal state")
	runCmd.Flags().BoolVar(&flagStream, "stream", false, "stream run events until the final event")
}

func parseLabels(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	labels := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			continue
		}
		labels[k] = v
	}
	return labels
}

// streamRun tails the run's event stream, printing each event, until the
// final event arrives or the stream fails.
func streamRun(ctx context.Context, client *asyncagent.Client, runID string) error {
	sub, err := client.StreamEvents(ctx, runID)
	if err != nil {
		return err
	}
	defer sub.Close()

	for event := range sub.Events() {
		if err := printJSON(event); err != nil {
			return err
		}
	}
	if err := sub.Err(); err != nil {
		return fmt.Errorf("stream ended: %w", err)
	}
	return nil
}
