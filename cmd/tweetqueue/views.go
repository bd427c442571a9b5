package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"tweetqueue/internal/api"
)

const (
	shortIDLength = 8
	textColumnMax = 48
)

var countOrder = []string{"queued", "publishing", "published", "failed"}

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

func buildTweetRows(items []api.Tweet, colorize bool) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		pos := "-"
		if item.State == "queued" {
			pos = strconv.Itoa(item.Position + 1)
		}
		rows = append(rows, []string{
			pos,
			shortID(item.ID),
			colorState(item.State, colorize),
			strconv.Itoa(item.Attempts),
			item.Text,
			tweetNote(item),
		})
	}
	return rows
}

func tweetNote(item api.Tweet) string {
	switch {
	case item.ExternalID != "":
		return "posted as " + item.ExternalID
	case item.FailureReason != "" && item.FailureDetail != "":
		return item.FailureReason + ": " + item.FailureDetail
	case item.FailureReason != "":
		return item.FailureReason
	default:
		return ""
	}
}

var tweetColumns = []column{
	{Header: "#", Align: alignRight},
	{Header: "ID"},
	{Header: "State"},
	{Header: "Tries", Align: alignRight},
	{Header: "Text", MaxWidth: textColumnMax},
	{Header: "Note", MaxWidth: textColumnMax},
}

func printTweets(out io.Writer, items []api.Tweet, colorize bool) {
	if len(items) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	fmt.Fprint(out, renderTable(tweetColumns, buildTweetRows(items, colorize)))
}

func formatCounts(counts map[string]int) string {
	parts := make([]string, 0, len(countOrder))
	for _, key := range countOrder {
		parts = append(parts, fmt.Sprintf("%s %d", key, counts[key]))
	}
	return strings.Join(parts, ", ")
}

func printReport(out io.Writer, report *api.RunReport, colorize bool) {
	if report == nil {
		return
	}
	summary := fmt.Sprintf("Run %s: published %d, failed %d, skipped %d", shortID(report.RunID), report.Published, report.Failed, report.Skipped)
	if d := reportDuration(report); d > 0 {
		summary += fmt.Sprintf(" in %s", d.Round(time.Millisecond))
	}
	fmt.Fprintln(out, summary)
	switch {
	case report.Error != "":
		fmt.Fprintln(out, renderStatusLine("Run", statusError, report.Error, colorize))
	case report.SessionExpired:
		fmt.Fprintln(out, renderStatusLine("Session", statusError, "expired during the run; log in again and re-run publish", colorize))
	case report.Cancelled:
		fmt.Fprintln(out, renderStatusLine("Run", statusWarn, "cancelled; remaining drafts stay queued", colorize))
	}
	if len(report.Items) == 0 {
		return
	}
	rows := make([][]string, 0, len(report.Items))
	for _, item := range report.Items {
		note := item.ExternalID
		if item.Reason != "" {
			note = item.Reason
			if item.Detail != "" {
				note += ": " + item.Detail
			}
		}
		rows = append(rows, []string{shortID(item.ID), item.Outcome, strconv.Itoa(item.Attempts), note})
	}
	fmt.Fprint(out, renderTable([]column{
		{Header: "ID"},
		{Header: "Outcome"},
		{Header: "Tries", Align: alignRight},
		{Header: "Detail", MaxWidth: textColumnMax},
	}, rows))
}

func reportDuration(report *api.RunReport) time.Duration {
	start, err := time.Parse(time.RFC3339Nano, report.StartedAt)
	if err != nil {
		return 0
	}
	end, err := time.Parse(time.RFC3339Nano, report.FinishedAt)
	if err != nil || end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

func describeSession(view api.SessionView) string {
	switch view.Status {
	case "authenticated":
		detail := "logged in as " + view.UserID
		if view.ExpiresAt != "" {
			detail += " until " + view.ExpiresAt
		}
		return detail
	case "expired":
		detail := "session expired"
		if view.Reason != "" {
			detail += " (" + view.Reason + ")"
		}
		return detail + "; run `tweetqueue login`"
	default:
		return "not logged in; run `tweetqueue login`"
	}
}
