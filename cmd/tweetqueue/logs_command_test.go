package main

import (
	"strings"
	"testing"
)

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	lines := []string{
		"INFO draft queued item_id=aaa",
		"INFO draft queued item_id=bbb",
		"INFO publish run finished run_id=r1 published=1",
	}
	for _, line := range lines {
		if err := appendLine(env.logPath, line); err != nil {
			t.Fatalf("append log line: %v", err)
		}
	}

	out, _, err := env.run(t, "logs", "--lines", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "item_id=aaa") || !strings.Contains(out, "run_id=r1") {
		t.Fatalf("expected the last two lines, got:\n%s", out)
	}

	out, _, err = env.run(t, "logs", "--lines", "0", "--item", "bbb")
	if err != nil {
		t.Fatalf("logs --item: %v", err)
	}
	if strings.TrimSpace(out) != lines[1] {
		t.Fatalf("unexpected filtered output:\n%s", out)
	}

	_, stderr, err := env.run(t, "logs", "--run", "missing")
	if err != nil {
		t.Fatalf("logs --run: %v", err)
	}
	requireContains(t, stderr, "No matching log lines")
}
