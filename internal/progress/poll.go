// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

// PollTransport is the fallback for environments where the streaming
// transport is unavailable. It re-fetches a progress snapshot on an interval
// and delivers it in the same event shape, so downstream code cannot tell
// which transport is active.
type PollTransport struct {
	BaseURL string
	Token   string

	// Interval between snapshot fetches (default 3s).
	Interval time.Duration

	Client    *http.Client
	UserAgent string
}

// Stream implements Transport by polling.
func (t PollTransport) Stream(ctx context.Context, searchID string, onOpen func(), onEvent func(types.ProgressEvent)) error {
	interval := t.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}

	opened := false
	for {
		ev, err := t.snapshot(ctx, searchID)
		if err != nil {
			return err
		}
		if !opened {
			onOpen()
			opened = true
		}
		onEvent(ev)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (t PollTransport) snapshot(ctx context.Context, searchID string) (types.ProgressEvent, error) {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	q := url.Values{}
	q.Set("search_id", searchID)
	if t.Token != "" {
		q.Set("token", t.Token)
	}
	endpoint := strings.TrimRight(t.BaseURL, "/") + "/api/buscar-progress?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.ProgressEvent{}, fmt.Errorf("building snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return types.ProgressEvent{}, fmt.Errorf("fetching progress snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return types.ProgressEvent{}, fmt.Errorf("progress snapshot returned %d: %s", resp.StatusCode, body)
	}

	var ev types.ProgressEvent
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return types.ProgressEvent{}, fmt.Errorf("decoding progress snapshot: %w", err)
	}
	return ev, nil
}
