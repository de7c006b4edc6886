// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sessao performs authenticated REST calls against the backend.
// Session issuance itself is external; this package only attaches the
// bearer token, refreshes it once on a 401, and surfaces a terminal
// session-expired signal when the refresh does not help.
package sessao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tjsasakifln/PNCP-poc-sub006/internal/httputil"
	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

const maxErrorBodyBytes = 8 * 1024

// LoginRedirect is where the UI sends an expired session; the reason
// marker lets the login page explain why the user landed there.
const LoginRedirect = "/login?reason=session_expired"

// ErrSessionExpired means the token was rejected even after a refresh.
var ErrSessionExpired = errors.New("session expired")

// TokenSource supplies and refreshes the session token. The concrete
// implementation wraps the auth provider's SDK.
type TokenSource interface {
	// Token returns the current session token.
	Token(ctx context.Context) (string, error)

	// Refresh obtains a new session token, invalidating the old one.
	Refresh(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for tokens that cannot be refreshed, such
// as long-lived API tokens loaded from secrets.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

func (s StaticToken) Refresh(context.Context) (string, error) {
	return "", fmt.Errorf("static tokens cannot be refreshed")
}

// Client issues bearer-authenticated requests with the refresh-once
// discipline.
type Client struct {
	cfg        types.SessionConfig
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient builds a session client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(cfg types.SessionConfig, httpClient *http.Client, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient, tokens: tokens}
}

// Do executes the request with the current token. On a 401 the token is
// refreshed exactly once and the request re-attempted; a second 401 is
// terminal and returns ErrSessionExpired.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading session token: %w", err)
	}

	resp, err := c.send(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
	resp.Body.Close()

	token, err = c.tokens.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh failed: %v", ErrSessionExpired, err)
	}

	resp, err = c.send(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()
		return nil, ErrSessionExpired
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, req *http.Request, token string) (*http.Response, error) {
	r := req.Clone(ctx)
	r.Header.Set("Authorization", "Bearer "+token)
	if c.cfg.UserAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	return httputil.DoWithRetry(ctx, c.httpClient, r, 1)
}

// BillingPortalURL asks the backend for a billing-portal session and
// returns the URL the user should be sent to.
func (c *Client) BillingPortalURL(ctx context.Context) (string, error) {
	req, err := http.NewRequest(http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/api/billing-portal", nil)
	if err != nil {
		return "", fmt.Errorf("building billing-portal request: %w", err)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", fmt.Errorf("billing portal returned %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding billing-portal response: %w", err)
	}
	if payload.URL == "" {
		return "", fmt.Errorf("billing portal returned no URL")
	}
	return payload.URL, nil
}
