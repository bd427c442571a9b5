package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tweetqueue/internal/session"
)

// PlatformProvider exchanges credentials at {base}/oauth/token.
type PlatformProvider struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

// NewPlatformProvider builds a provider for the platform at baseURL.
func NewPlatformProvider(baseURL, userAgent string, timeout time.Duration) *PlatformProvider {
	return &PlatformProvider{
		endpoint:  strings.TrimRight(baseURL, "/") + "/oauth/token",
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Authenticate implements session.IdentityProvider.
func (p *PlatformProvider) Authenticate(ctx context.Context, username, password string) (session.Credentials, error) {
	body, err := json.Marshal(tokenRequest{GrantType: "password", Username: username, Password: password})
	if err != nil {
		return session.Credentials{}, fmt.Errorf("encode token request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return session.Credentials{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return session.Credentials{}, session.NewAuthError(session.ReasonNetwork, "identity provider unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return session.Credentials{}, session.NewAuthError(session.ReasonInvalidCredentials, "platform rejected the credentials", nil)
	case resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return session.Credentials{}, session.NewAuthError(session.ReasonNetwork,
			fmt.Sprintf("identity provider returned %s", resp.Status), fmt.Errorf("%s", strings.TrimSpace(string(snippet))))
	}

	var payload tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return session.Credentials{}, session.NewAuthError(session.ReasonNetwork, "decode token response", err)
	}
	if payload.AccessToken == "" {
		return session.Credentials{}, session.NewAuthError(session.ReasonNetwork, "token response missing access_token", nil)
	}
	creds := session.Credentials{UserID: payload.UserID, Token: payload.AccessToken}
	if payload.ExpiresIn > 0 {
		creds.ExpiresAt = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return creds, nil
}
