// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package busca executes searches against the backend aggregation engine
// and owns the client-side search lifecycle: the result-producing request,
// the merge of live progress events into view state, and the automatic
// retry of transient failures.
package busca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

const maxErrorBodyBytes = 8 * 1024

// Client performs the result-producing search call.
type Client struct {
	cfg        types.BuscaConfig
	httpClient *http.Client

	// Token, when set, is sent as a bearer credential.
	Token string
}

// NewClient builds a search client. A nil httpClient falls back to
// http.DefaultClient with the configured timeout.
func NewClient(cfg types.BuscaConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// errorBody is the backend's structured error envelope. detail is either a
// plain string or a nested object.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type errorDetail struct {
	Detail        string `json:"detail"`
	ErrorCode     string `json:"error_code"`
	SearchID      string `json:"search_id"`
	CorrelationID string `json:"correlation_id"`
	Timestamp     string `json:"timestamp"`
}

// Buscar executes the search and returns the authoritative result. Failures
// come back as a *SearchError already classified as transient or permanent.
func (c *Client) Buscar(ctx context.Context, params types.SearchParams) (*types.SearchResult, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding search parameters: %w", err)
	}

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/api/buscar", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SearchError{
			Message:    "Não foi possível conectar ao servidor de buscas.",
			RawMessage: err.Error(),
			SearchID:   params.SearchID,
			RequestID:  requestID,
			Timestamp:  time.Now(),
			Transient:  IsTransientError(0, err.Error()),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp, params.SearchID, requestID)
	}

	var result types.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search result: %w", err)
	}
	if result.SearchID == "" {
		result.SearchID = params.SearchID
	}
	return &result, nil
}

// parseError builds a SearchError from a non-200 response.
func (c *Client) parseError(resp *http.Response, searchID, requestID string) *SearchError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	serr := &SearchError{
		SearchID:   searchID,
		RequestID:  requestID,
		HTTPStatus: resp.StatusCode,
		Timestamp:  time.Now(),
	}
	if id := resp.Header.Get("X-Correlation-ID"); id != "" {
		serr.CorrelationID = id
	}

	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var nested errorDetail
		if err := json.Unmarshal(envelope.Detail, &nested); err == nil {
			serr.RawMessage = nested.Detail
			serr.ErrorCode = nested.ErrorCode
			if nested.SearchID != "" {
				serr.SearchID = nested.SearchID
			}
			if nested.CorrelationID != "" {
				serr.CorrelationID = nested.CorrelationID
			}
			if ts, err := time.Parse(time.RFC3339, nested.Timestamp); err == nil {
				serr.Timestamp = ts
			}
		} else {
			var plain string
			if err := json.Unmarshal(envelope.Detail, &plain); err == nil {
				serr.RawMessage = plain
			}
		}
	}
	if serr.RawMessage == "" {
		serr.RawMessage = strings.TrimSpace(string(body))
	}

	if msg, ok := CodeMessage(serr.ErrorCode); ok {
		serr.Message = msg
	} else if serr.RawMessage != "" {
		serr.Message = serr.RawMessage
	} else {
		serr.Message = fmt.Sprintf("A busca falhou (HTTP %d). Tente novamente.", resp.StatusCode)
	}

	serr.Transient = IsTransientError(resp.StatusCode, serr.RawMessage)
	return serr
}
