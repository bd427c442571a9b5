package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tweetqueue/internal/api"
	"tweetqueue/internal/ipc"
	"tweetqueue/internal/queue"
	"tweetqueue/internal/textutil"
)

func newQueueCommands(ctx *commandContext) []*cobra.Command {
	addCmd := &cobra.Command{
		Use:     "add <text...>",
		Aliases: []string{"create"},
		Short:   "Append a draft to the end of the queue",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return ctx.withClient(func(client *ipc.Client) error {
				existing, err := client.ListTweets()
				if err != nil {
					return err
				}
				item, err := client.CreateTweet(text)
				if err != nil {
					return err
				}
				warnSimilarDraft(cmd.ErrOrStderr(), item.Text, existing.Items)
				return ctx.emit(cmd, item, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "Queued draft %s at position %d\n", shortID(item.ID), item.Position+1)
				})
			})
		},
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List drafts in queue order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListTweets()
				if err != nil {
					return err
				}
				return ctx.emitList(cmd, resp)
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a draft that is not being published",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				ids, err := resolveIDs(client, args)
				if err != nil {
					return err
				}
				resp, err := client.RemoveTweet(ids[0])
				if err != nil {
					return err
				}
				return ctx.emitList(cmd, resp)
			})
		},
	}

	reorderCmd := &cobra.Command{
		Use:   "reorder <id...>",
		Short: "Set the publish order of every queued draft",
		Long: "Reorder takes the ids of all queued drafts in their new order. Every queued\n" +
			"draft must be named exactly once. Id prefixes are accepted.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				ids, err := resolveIDs(client, args)
				if err != nil {
					return err
				}
				resp, err := client.ReorderTweets(ids)
				if err != nil {
					return err
				}
				return ctx.emitList(cmd, resp)
			})
		},
	}

	reverseCmd := &cobra.Command{
		Use:   "reverse",
		Short: "Reverse the order of queued drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ReverseTweets()
				if err != nil {
					return err
				}
				return ctx.emitList(cmd, resp)
			})
		},
	}

	retryCmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Queue a fresh copy of a failed draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				ids, err := resolveIDs(client, args)
				if err != nil {
					return err
				}
				item, err := client.RetryTweet(ids[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, item, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "Queued retry %s for %s at position %d\n", shortID(item.ID), shortID(ids[0]), item.Position+1)
				})
			})
		},
	}

	var pruneStates []string
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete published and failed drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, value := range pruneStates {
				state, ok := queue.ParseState(value)
				if !ok || !state.IsTerminal() {
					return fmt.Errorf("invalid --state %q: expected published or failed", value)
				}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				removed, err := client.PruneTweets(pruneStates)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.PruneResponse{Removed: removed}, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %d draft(s)\n", removed)
				})
			})
		},
	}
	pruneCmd.Flags().StringSliceVar(&pruneStates, "state", nil, "Only prune drafts in this state (repeatable: published, failed)")

	return []*cobra.Command{addCmd, listCmd, removeCmd, reorderCmd, reverseCmd, retryCmd, pruneCmd}
}

// similarWarnThreshold is the cosine score at which a new draft is reported
// as a likely duplicate of a queued one.
const similarWarnThreshold = 0.8

func warnSimilarDraft(out io.Writer, text string, items []api.Tweet) {
	var queued []api.Tweet
	var texts []string
	for _, item := range items {
		if item.State == string(queue.StateQueued) {
			queued = append(queued, item)
			texts = append(texts, item.Text)
		}
	}
	match := textutil.MostSimilar(text, texts)
	if match.Index < 0 || match.Score < similarWarnThreshold {
		return
	}
	fmt.Fprintf(out, "warning: draft looks like queued draft %s (%.0f%% similar); platforms may reject duplicates\n",
		shortID(queued[match.Index].ID), match.Score*100)
}

func (c *commandContext) emitList(cmd *cobra.Command, resp *api.QueueListResponse) error {
	return c.emit(cmd, resp, func() {
		out := cmd.OutOrStdout()
		printTweets(out, resp.Items, shouldColorize(out))
		printCountsFooter(out, resp.Counts)
	})
}

func printCountsFooter(out io.Writer, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintln(out, formatCounts(counts))
}

// resolveIDs expands unique id prefixes against the current snapshot. Full
// ids and unknown values pass through so the daemon reports them.
func resolveIDs(client *ipc.Client, args []string) ([]string, error) {
	resp, err := client.ListTweets()
	if err != nil {
		return nil, err
	}
	resolved := make([]string, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			return nil, errors.New("draft id must not be empty")
		}
		id, err := matchID(resp.Items, arg)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, id)
	}
	return resolved, nil
}

func matchID(items []api.Tweet, prefix string) (string, error) {
	var matches []string
	for _, item := range items {
		if item.ID == prefix {
			return item.ID, nil
		}
		if strings.HasPrefix(item.ID, prefix) {
			matches = append(matches, item.ID)
		}
	}
	switch len(matches) {
	case 0:
		return prefix, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id prefix %q is ambiguous (%d drafts match)", prefix, len(matches))
	}
}
