package main

import (
	"encoding/json"
	"strings"
	"testing"

	"tweetqueue/internal/api"
)

func TestPublishReportsRun(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	for _, text := range []string{"one", "two"} {
		if _, _, err := env.run(t, "add", text); err != nil {
			t.Fatalf("add %q: %v", text, err)
		}
	}

	out, _, err := env.run(t, "publish")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	requireContains(t, out, "published 2, failed 0, skipped 0")

	out, _, err = env.run(t, "--json", "publish", "status")
	if err != nil {
		t.Fatalf("publish status: %v", err)
	}
	var status api.RunStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode run status: %v\n%s", err, out)
	}
	if status.Running || status.LastReport == nil || status.LastReport.Published != 2 || len(status.LastReport.Items) != 2 {
		t.Fatalf("unexpected run status %+v", status)
	}

	out, _, err = env.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "published 2")

	out, _, err = env.run(t, "prune", "--state", "published")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, "Removed 2 draft(s)")
}

func TestPublishWithoutSessionFails(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := env.run(t, "publish"); err == nil {
		t.Fatal("expected publish without a session to fail")
	}
}

func TestCancelWithoutRun(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	out, _, err := env.run(t, "cancel")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireContains(t, out, "No publish run in progress")
}

func TestPrintReportNotes(t *testing.T) {
	tests := []struct {
		name   string
		report api.RunReport
		want   string
	}{
		{
			name:   "session expired",
			report: api.RunReport{RunID: "run-1", SessionExpired: true, Skipped: 1},
			want:   "expired during the run",
		},
		{
			name:   "cancelled",
			report: api.RunReport{RunID: "run-2", Cancelled: true},
			want:   "remaining drafts stay queued",
		},
		{
			name: "failure detail",
			report: api.RunReport{RunID: "run-3", Failed: 1, Items: []api.ItemOutcome{
				{ID: "draft-1", Outcome: "failed", Reason: "rejected", Detail: "duplicate"},
			}},
			want: "rejected: duplicate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			printReport(&buf, &tt.report, false)
			requireContains(t, buf.String(), tt.want)
		})
	}
}
