package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tweetqueue/internal/ipc"
	"tweetqueue/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var filters logstream.Filters

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				printed, err := logstream.Stream(cmd.Context(), client, logstream.Options{
					Lines:   lines,
					Follow:  follow,
					Filters: filters,
				}, func(line string) {
					fmt.Fprintln(out, line)
				})
				if err != nil {
					return err
				}
				if !printed && !follow {
					fmt.Fprintln(cmd.ErrOrStderr(), "No matching log lines")
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show (0 for the whole log)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&filters.ItemID, "item", "", "Only show lines mentioning this draft id")
	cmd.Flags().StringVar(&filters.RunID, "run", "", "Only show lines mentioning this publish run id")
	cmd.Flags().StringVar(&filters.Search, "grep", "", "Only show lines containing this text")
	return cmd
}
