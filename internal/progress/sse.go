// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

const maxErrorBodyBytes = 8 * 1024

// sseScanBuffer bounds a single SSE line; summaries arrive inline so the
// default bufio limit is too small.
const sseScanBuffer = 1 << 20

// SSETransport streams progress events from the backend's
// text/event-stream endpoint.
type SSETransport struct {
	// BaseURL is the backend base URL.
	BaseURL string

	// Token authenticates the stream; passed as a query parameter because
	// EventSource-style consumers cannot set headers.
	Token string

	Client    *http.Client
	UserAgent string
}

// Stream implements Transport over one HTTP connection.
func (t SSETransport) Stream(ctx context.Context, searchID string, onOpen func(), onEvent func(types.ProgressEvent)) error {
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
		return fmt.Errorf("building progress request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting progress stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("progress stream returned %d: %s", resp.StatusCode, body)
	}

	onOpen()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), sseScanBuffer)

	var data bytes.Buffer
	dispatch := func() {
		if data.Len() == 0 {
			return
		}
		var ev types.ProgressEvent
		if err := json.Unmarshal(data.Bytes(), &ev); err == nil {
			onEvent(ev)
		}
		data.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			dispatch()
			continue
		}
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimPrefix(rest, " "))
		}
		// Comment lines (":") and other SSE fields are ignored.
	}
	dispatch()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading progress stream: %w", err)
	}
	return nil
}
