package main

import (
	"encoding/json"
	"strings"
	"testing"

	"tweetqueue/internal/api"
)

func TestQueueCommandsRequireLogin(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "add", "hello")
	if err == nil || !strings.Contains(err.Error(), "unauthenticated") {
		t.Fatalf("expected unauthenticated error, got %v", err)
	}
}

func TestQueueLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	for _, text := range []string{"first", "second", "third"} {
		out, _, err := env.run(t, "add", text)
		if err != nil {
			t.Fatalf("add %q: %v", text, err)
		}
		requireContains(t, out, "Queued draft")
	}

	out, _, err := env.run(t, "--json", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var list api.QueueListResponse
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(list.Items) != 3 || list.Counts["queued"] != 3 {
		t.Fatalf("unexpected list %+v", list)
	}
	ids := []string{list.Items[0].ID, list.Items[1].ID, list.Items[2].ID}

	out, _, err = env.run(t, "reorder", shortID(ids[2]), ids[0], ids[1])
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if strings.Index(out, "third") > strings.Index(out, "first") {
		t.Fatalf("expected third listed first:\n%s", out)
	}

	if _, _, err := env.run(t, "reverse"); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	items := env.stack.Queue.Snapshot()
	if items[0].Text != "second" || items[2].Text != "third" {
		t.Fatalf("unexpected order after reverse: %s, %s, %s", items[0].Text, items[1].Text, items[2].Text)
	}

	out, _, err = env.run(t, "remove", ids[0])
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	requireContains(t, out, "queued 2")

	if _, _, err := env.run(t, "reorder", ids[1]); err == nil {
		t.Fatal("expected reorder naming a subset of drafts to fail")
	}
}

func TestQueueAddRejectsLongText(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	_, _, err := env.run(t, "add", strings.Repeat("x", env.cfg.Platform.MaxTextLength+1))
	if err == nil {
		t.Fatal("expected over-long draft to be rejected")
	}
}

func TestPruneRejectsQueuedState(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := env.run(t, "prune", "--state", "queued"); err == nil {
		t.Fatal("expected prune of queued state to be rejected")
	}
}

func TestMatchID(t *testing.T) {
	items := []api.Tweet{{ID: "abc123"}, {ID: "abd456"}, {ID: "ffff"}}
	tests := []struct {
		prefix  string
		want    string
		wantErr bool
	}{
		{prefix: "abc", want: "abc123"},
		{prefix: "ffff", want: "ffff"},
		{prefix: "ab", wantErr: true},
		{prefix: "zzz", want: "zzz"},
	}
	for _, tt := range tests {
		got, err := matchID(items, tt.prefix)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("matchID(%q) = %q, %v", tt.prefix, got, err)
		}
	}
}

func TestAddWarnsOnSimilarDraft(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	if _, _, err := env.run(t, "add", "Release v2 ships today with faster builds"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, stderr, err := env.run(t, "add", "release v2 ships today, with faster builds!")
	if err != nil {
		t.Fatalf("add similar: %v", err)
	}
	requireContains(t, stderr, "looks like queued draft")

	_, stderr, err = env.run(t, "add", "Unrelated gardening thoughts")
	if err != nil {
		t.Fatalf("add unrelated: %v", err)
	}
	if strings.Contains(stderr, "looks like") {
		t.Fatalf("unexpected warning: %s", stderr)
	}
}
