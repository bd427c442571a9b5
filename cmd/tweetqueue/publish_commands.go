package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tweetqueue/internal/ipc"
)

func newPublishCommands(ctx *commandContext) []*cobra.Command {
	var async bool
	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish queued drafts in order",
		Long: "Publish posts every queued draft in queue order using the current session.\n" +
			"Without --async the command waits for the run to finish and prints its report.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PublishTweets(async)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, resp, func() {
					out := cmd.OutOrStdout()
					if resp.Async {
						fmt.Fprintf(out, "Publish run %s started; check progress with `tweetqueue publish status`\n", shortID(resp.RunID))
						return
					}
					printReport(out, resp.Report, shouldColorize(out))
				})
			})
		},
	}
	publishCmd.Flags().BoolVar(&async, "async", false, "Start the run and return without waiting for it")

	publishStatusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active or most recent publish run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.PublishStatus()
				if err != nil {
					return err
				}
				return ctx.emit(cmd, status, func() {
					out := cmd.OutOrStdout()
					switch {
					case status.Running:
						fmt.Fprintf(out, "Publish run %s in progress\n", shortID(status.RunID))
					case status.LastReport != nil:
						printReport(out, status.LastReport, shouldColorize(out))
					default:
						fmt.Fprintln(out, "No publish run yet")
					}
				})
			})
		},
	}
	publishCmd.AddCommand(publishStatusCmd)

	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Stop the active publish run after the current draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CancelPublish()
				if err != nil {
					return err
				}
				return ctx.emit(cmd, resp, func() {
					if resp.Cancelled {
						fmt.Fprintln(cmd.OutOrStdout(), "Cancellation requested")
						return
					}
					fmt.Fprintln(cmd.OutOrStdout(), "No publish run in progress")
				})
			})
		},
	}

	return []*cobra.Command{publishCmd, cancelCmd}
}
