package testsupport

import (
	"context"
	"fmt"
	"sync"
)

// Response is one scripted platform reply.
type Response struct {
	ID  string
	Err error
}

// Call records one Publish invocation.
type Call struct {
	Token string
	Text  string
}

// ScriptedClient is a platform.Client that replays scripted responses per
// draft text. Texts without a script succeed with a generated id; once a
// script is exhausted its last response repeats.
type ScriptedClient struct {
	mu      sync.Mutex
	scripts map[string][]Response
	calls   []Call
	// OnCall runs before each reply is returned, outside the client lock.
	OnCall func(call Call)
}

// NewScriptedClient returns an empty ScriptedClient.
func NewScriptedClient() *ScriptedClient {
	return &ScriptedClient{scripts: make(map[string][]Response)}
}

// Script queues responses for text.
func (c *ScriptedClient) Script(text string, responses ...Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[text] = append(c.scripts[text], responses...)
}

// Publish implements platform.Client.
func (c *ScriptedClient) Publish(_ context.Context, token, text string) (string, error) {
	call := Call{Token: token, Text: text}
	c.mu.Lock()
	c.calls = append(c.calls, call)
	var resp Response
	if script := c.scripts[text]; len(script) > 0 {
		resp = script[0]
		if len(script) > 1 {
			c.scripts[text] = script[1:]
		}
	} else {
		resp = Response{ID: fmt.Sprintf("post-%d", len(c.calls))}
	}
	hook := c.OnCall
	c.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return resp.ID, resp.Err
}

// Calls returns every Publish invocation so far.
func (c *ScriptedClient) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Texts returns the text of every Publish invocation in call order.
func (c *ScriptedClient) Texts() []string {
	calls := c.Calls()
	out := make([]string, len(calls))
	for i, call := range calls {
		out[i] = call.Text
	}
	return out
}
