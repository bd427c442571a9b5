package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"tweetqueue/internal/api"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Command runs a named command and returns its envelope. Transport failures
// are returned as errors. Command failures are reported in the envelope.
func (c *Client) Command(name string, payload any) (*CommandResponse, error) {
	req := CommandRequest{Name: name}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", name, err)
		}
		req.Payload = raw
	}
	var resp CommandResponse
	if err := c.client.Call(serviceName+".Command", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// call runs a command and decodes its data into out. A failed command is
// returned as *api.ErrorBody.
func (c *Client) call(name string, payload, out any) error {
	resp, err := c.Command(name, payload)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Login authenticates the daemon session.
func (c *Client) Login(username, password string) (*api.SessionView, error) {
	var view api.SessionView
	if err := c.call(api.CommandLogin, api.LoginRequest{Username: username, Password: password}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Logout ends the daemon session.
func (c *Client) Logout() (*api.SessionView, error) {
	var view api.SessionView
	if err := c.call(api.CommandLogout, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Session reports the daemon session.
func (c *Client) Session() (*api.SessionView, error) {
	var view api.SessionView
	if err := c.call(api.CommandSession, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// CreateTweet appends a draft to the queue.
func (c *Client) CreateTweet(text string) (*api.Tweet, error) {
	var resp api.TweetResponse
	if err := c.call(api.CommandCreateTweet, api.CreateRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return &resp.Item, nil
}

// ListTweets returns the queue snapshot.
func (c *Client) ListTweets() (*api.QueueListResponse, error) {
	return c.list(api.CommandListTweets, nil)
}

// RemoveTweet deletes a queued or terminal draft.
func (c *Client) RemoveTweet(id string) (*api.QueueListResponse, error) {
	return c.list(api.CommandRemoveTweet, api.IDRequest{ID: id})
}

// ReorderTweets applies a full permutation of the queued drafts.
func (c *Client) ReorderTweets(order []string) (*api.QueueListResponse, error) {
	return c.list(api.CommandReorderTweets, api.ReorderRequest{Order: order})
}

// ReverseTweets reverses the queued drafts.
func (c *Client) ReverseTweets() (*api.QueueListResponse, error) {
	return c.list(api.CommandReverseTweets, nil)
}

func (c *Client) list(name string, payload any) (*api.QueueListResponse, error) {
	var resp api.QueueListResponse
	if err := c.call(name, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RetryTweet requeues a copy of a terminal draft.
func (c *Client) RetryTweet(id string) (*api.Tweet, error) {
	var resp api.TweetResponse
	if err := c.call(api.CommandRetryTweet, api.IDRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp.Item, nil
}

// PruneTweets deletes terminal drafts in the given states, or both terminal
// states when none are given.
func (c *Client) PruneTweets(states []string) (int, error) {
	var resp api.PruneResponse
	if err := c.call(api.CommandPruneTweets, api.PruneRequest{States: states}, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// PublishTweets runs a publish pass. Sync calls block until the run finishes.
func (c *Client) PublishTweets(async bool) (*api.PublishResponse, error) {
	var resp api.PublishResponse
	if err := c.call(api.CommandPublishTweet, api.PublishRequest{Async: async}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelPublish asks the active run to stop at the next item boundary.
func (c *Client) CancelPublish() (*api.CancelResponse, error) {
	var resp api.CancelResponse
	if err := c.call(api.CommandCancelPublish, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PublishStatus reports the active run and the last finished report.
func (c *Client) PublishStatus() (*api.RunStatus, error) {
	var resp api.RunStatus
	if err := c.call(api.CommandPublishStatus, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call(serviceName+".Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the daemon process to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call(serviceName+".Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call(serviceName+".LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification asks the daemon to send a test notification.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call(serviceName+".TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
