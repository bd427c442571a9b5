package logstream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tweetqueue/internal/ipc"
)

// TailClient captures the IPC log tail contract.
type TailClient interface {
	LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error)
}

// Filters narrows the stream to lines mentioning a draft, a publish run, or
// free text. All non-empty filters must match.
type Filters struct {
	ItemID string
	RunID  string
	Search string
}

func (f Filters) terms() []string {
	var terms []string
	for _, value := range []string{f.ItemID, f.RunID, f.Search} {
		if value = strings.TrimSpace(value); value != "" {
			terms = append(terms, value)
		}
	}
	return terms
}

// Options controls stream behavior.
type Options struct {
	Lines   int
	Follow  bool
	Filters Filters
}

const followWaitMillis = 1000

// Stream tails the daemon log over IPC and calls onLine for each line. With
// Follow set it keeps polling until ctx is done. It returns true when at
// least one line was emitted.
func Stream(ctx context.Context, client TailClient, opts Options, onLine func(string)) (bool, error) {
	if client == nil {
		return false, errors.New("log tail client is required")
	}
	limit := opts.Lines
	if limit < 0 {
		limit = 0
	}
	offset := int64(-1)
	if limit == 0 {
		offset = 0
	}
	match := opts.Filters.terms()

	printed := false
	for {
		if err := ctx.Err(); err != nil {
			return printed, nil
		}
		resp, err := client.LogTail(ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     opts.Follow,
			WaitMillis: followWaitMillis,
			Match:      match,
		})
		if err != nil {
			return printed, fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return printed, errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		offset = resp.Offset
		limit = 0
		if !opts.Follow {
			return printed, nil
		}
	}
}
