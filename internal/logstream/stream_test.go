package logstream

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"tweetqueue/internal/ipc"
)

type fakeTail struct {
	responses []*ipc.LogTailResponse
	requests  []ipc.LogTailRequest
	err       error
	cancel    context.CancelFunc
}

func (f *fakeTail) LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		if f.cancel != nil {
			f.cancel()
		}
		return &ipc.LogTailResponse{Offset: f.requests[len(f.requests)-1].Offset}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func TestStreamLastLines(t *testing.T) {
	client := &fakeTail{responses: []*ipc.LogTailResponse{{Lines: []string{"a", "b"}, Offset: 10}}}
	var got []string
	printed, err := Stream(context.Background(), client, Options{Lines: 2, Filters: Filters{ItemID: " abc ", Search: "published"}}, func(line string) {
		got = append(got, line)
	})
	if err != nil || !printed {
		t.Fatalf("Stream = %v, %v", printed, err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("lines = %v", got)
	}
	req := client.requests[0]
	if req.Offset != -1 || req.Limit != 2 || req.Follow {
		t.Fatalf("unexpected request %+v", req)
	}
	if !reflect.DeepEqual(req.Match, []string{"abc", "published"}) {
		t.Fatalf("match terms = %v", req.Match)
	}
}

func TestStreamWholeFileWhenLinesZero(t *testing.T) {
	client := &fakeTail{responses: []*ipc.LogTailResponse{{Offset: 0}}}
	printed, err := Stream(context.Background(), client, Options{}, nil)
	if err != nil || printed {
		t.Fatalf("Stream = %v, %v", printed, err)
	}
	if client.requests[0].Offset != 0 || client.requests[0].Match != nil {
		t.Fatalf("unexpected request %+v", client.requests[0])
	}
}

func TestStreamFollowResumesFromOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := &fakeTail{
		responses: []*ipc.LogTailResponse{
			{Lines: []string{"first"}, Offset: 6},
			{Lines: []string{"second"}, Offset: 13},
		},
		cancel: cancel,
	}
	var got []string
	printed, err := Stream(ctx, client, Options{Lines: 5, Follow: true}, func(line string) {
		got = append(got, line)
	})
	if err != nil || !printed {
		t.Fatalf("Stream = %v, %v", printed, err)
	}
	if !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Fatalf("lines = %v", got)
	}
	if len(client.requests) < 3 {
		t.Fatalf("expected follow polling, got %d requests", len(client.requests))
	}
	second := client.requests[1]
	if second.Offset != 6 || second.Limit != 0 || !second.Follow || second.WaitMillis != followWaitMillis {
		t.Fatalf("unexpected follow request %+v", second)
	}
	if client.requests[2].Offset != 13 {
		t.Fatalf("expected resume at 13, got %+v", client.requests[2])
	}
}

func TestStreamPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Stream(context.Background(), &fakeTail{err: boom}, Options{Lines: 1}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if _, err := Stream(context.Background(), nil, Options{}, nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}
