package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPClient posts to {base}/posts with a bearer token. Per-attempt
// deadlines come from the caller's context.
type HTTPClient struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

// NewHTTPClient builds a client for the platform at baseURL.
func NewHTTPClient(baseURL, userAgent string) *HTTPClient {
	return &HTTPClient{
		endpoint:  strings.TrimRight(baseURL, "/") + "/posts",
		userAgent: userAgent,
		client:    &http.Client{},
	}
}

type postRequest struct {
	Text string `json:"text"`
}

type postResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Publish implements Client.
func (c *HTTPClient) Publish(ctx context.Context, token, text string) (string, error) {
	body, err := json.Marshal(postRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("encode post: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	var payload postResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(bytes.TrimSpace(raw)) > 0 {
		_ = json.Unmarshal(raw, &payload)
	}
	reason := payload.Error
	if reason == "" && resp.StatusCode >= 300 {
		reason = strings.TrimSpace(string(raw))
		if len(reason) > 200 {
			reason = reason[:200]
		}
		if reason == "" {
			reason = resp.Status
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return "", newError(KindUnauthorized, reason, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		e := newError(KindRateLimited, reason, nil)
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return "", e
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusUnprocessableEntity, resp.StatusCode == http.StatusRequestEntityTooLarge:
		return "", newError(KindRejected, reason, nil)
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode >= 500:
		return "", newError(KindTimeout, reason, nil)
	case resp.StatusCode >= 300:
		return "", newError(KindRejected, reason, nil)
	}

	// A 2xx means the post exists even when no id comes back; retrying would
	// post it twice.
	return payload.ID, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newError(KindTimeout, "request timed out", err)
	}
	return newError(KindTimeout, "platform unreachable", err)
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
