// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sessao

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

// fakeTokens is a refreshable TokenSource.
type fakeTokens struct {
	mu       sync.Mutex
	current  string
	next     string
	refreshs int
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakeTokens) Refresh(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshs++
	f.current = f.next
	return f.current, nil
}

func (f *fakeTokens) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshs
}

func TestClient_ValidTokenPassesThrough(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer valid", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	tokens := &fakeTokens{current: "valid"}
	c := NewClient(types.SessionConfig{BaseURL: ts.URL}, ts.Client(), tokens)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/conta", nil)
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, tokens.refreshCount())
}

func TestClient_RefreshesOnceOn401(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	tokens := &fakeTokens{current: "stale", next: "fresh"}
	c := NewClient(types.SessionConfig{BaseURL: ts.URL}, ts.Client(), tokens)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/conta", nil)
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, tokens.refreshCount())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_SecondUnauthorizedIsTerminal(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	tokens := &fakeTokens{current: "stale", next: "still-bad"}
	c := NewClient(types.SessionConfig{BaseURL: ts.URL}, ts.Client(), tokens)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/conta", nil)
	_, err := c.Do(context.Background(), req)
	require.ErrorIs(t, err, ErrSessionExpired)

	assert.Equal(t, 1, tokens.refreshCount(), "the refresh happens exactly once")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Contains(t, LoginRedirect, "reason=session_expired")
}

func TestClient_BillingPortalURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/billing-portal", r.URL.Path)
		fmt.Fprint(w, `{"url":"https://billing.stripe.com/p/session/abc"}`)
	}))
	defer ts.Close()

	c := NewClient(types.SessionConfig{BaseURL: ts.URL}, ts.Client(), &fakeTokens{current: "valid"})
	url, err := c.BillingPortalURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/session/abc", url)
}

func TestStaticToken(t *testing.T) {
	tok := StaticToken("api-token")
	got, err := tok.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "api-token", got)

	_, err = tok.Refresh(context.Background())
	assert.Error(t, err)
}
