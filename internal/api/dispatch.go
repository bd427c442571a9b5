package api

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"

	"tweetqueue/internal/services"
)

// Command names accepted by Dispatch.
const (
	CommandLogin         = "login"
	CommandLogout        = "logout"
	CommandSession       = "session"
	CommandCreateTweet   = "createTweet"
	CommandListTweets    = "listTweets"
	CommandRemoveTweet   = "removeTweet"
	CommandReorderTweets = "reorderTweets"
	CommandReverseTweets = "reverseTweets"
	CommandRetryTweet    = "retryTweet"
	CommandPruneTweets   = "pruneTweets"
	CommandPublishTweet  = "publishTweet"
	CommandCancelPublish = "cancelPublish"
	CommandPublishStatus = "publishStatus"
)

type handler func(ctx context.Context, payload json.RawMessage) Result

func (s *Service) handlers() map[string]handler {
	return map[string]handler{
		CommandLogin: withPayload(s.Login),
		CommandLogout: func(ctx context.Context, _ json.RawMessage) Result {
			return s.Logout(ctx)
		},
		CommandSession: func(ctx context.Context, _ json.RawMessage) Result {
			return s.Session(ctx)
		},
		CommandCreateTweet: withPayload(s.CreateTweet),
		CommandListTweets: func(ctx context.Context, _ json.RawMessage) Result {
			return s.ListTweets(ctx)
		},
		CommandRemoveTweet:   withPayload(s.RemoveTweet),
		CommandReorderTweets: withPayload(s.ReorderTweets),
		CommandReverseTweets: func(ctx context.Context, _ json.RawMessage) Result {
			return s.ReverseTweets(ctx)
		},
		CommandRetryTweet:   withPayload(s.RetryTweet),
		CommandPruneTweets:  withPayload(s.PruneTweets),
		CommandPublishTweet: withPayload(s.PublishTweets),
		CommandCancelPublish: func(ctx context.Context, _ json.RawMessage) Result {
			return s.CancelPublish(ctx)
		},
		CommandPublishStatus: func(ctx context.Context, _ json.RawMessage) Result {
			return s.PublishStatus(ctx)
		},
	}
}

// Commands lists the names Dispatch accepts, sorted.
func (s *Service) Commands() []string {
	handlers := s.handlers()
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch runs the named command with a JSON payload.
func (s *Service) Dispatch(ctx context.Context, name string, payload json.RawMessage) Result {
	h, ok := s.handlers()[name]
	if !ok {
		return Fail(services.Wrap(services.ErrNotFound, "api", "dispatch", "unknown command "+name, nil))
	}
	return h(ctx, payload)
}

func withPayload[T any](fn func(context.Context, T) Result) handler {
	return func(ctx context.Context, payload json.RawMessage) Result {
		var req T
		if len(bytes.TrimSpace(payload)) > 0 {
			dec := json.NewDecoder(bytes.NewReader(payload))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				return Fail(services.Wrap(services.ErrValidation, "api", "decode", "invalid payload", err))
			}
		}
		return fn(ctx, req)
	}
}
