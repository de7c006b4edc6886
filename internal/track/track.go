// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package track sends fire-and-forget usage events. Delivery is best
// effort: a full buffer drops the event and nothing here ever blocks or
// fails a user-facing operation.
package track

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tjsasakifln/PNCP-poc-sub006/internal/httputil"
	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

const sendTimeout = 10 * time.Second

// Event is one analytics record.
type Event struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Timestamp  time.Time      `json:"timestamp"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Tracker queues events and ships them from a background worker.
type Tracker struct {
	cfg    types.TrackConfig
	client *http.Client
	logger *zap.Logger

	events chan Event
	done   chan struct{}
}

// New starts a tracker. When cfg.Enabled is false the tracker accepts and
// discards events, so call sites never need to branch.
func New(cfg types.TrackConfig, client *http.Client, logger *zap.Logger) *Tracker {
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}

	t := &Tracker{
		cfg:    cfg,
		client: client,
		logger: logger,
		events: make(chan Event, cfg.Buffer),
		done:   make(chan struct{}),
	}
	go t.run()
	return t
}

// Track enqueues an event. A full buffer drops it with a log line.
func (t *Tracker) Track(name string, properties map[string]any) {
	if !t.cfg.Enabled {
		return
	}
	ev := Event{
		ID:         uuid.NewString(),
		Name:       name,
		Timestamp:  time.Now().UTC(),
		Properties: properties,
	}
	select {
	case t.events <- ev:
	default:
		t.logger.Debug("tracking buffer full, dropping event", zap.String("event", name))
	}
}

// Close stops accepting events and waits for the worker to drain the
// queue.
func (t *Tracker) Close() {
	close(t.events)
	<-t.done
}

func (t *Tracker) run() {
	defer close(t.done)
	for ev := range t.events {
		t.send(ev)
	}
}

func (t *Tracker) send(ev Event) {
	if t.cfg.Endpoint == "" {
		return
	}

	body, err := json.Marshal(ev)
	if err != nil {
		t.logger.Debug("encoding tracking event failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	req, err := http.NewRequest(http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		t.logger.Debug("building tracking request failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if t.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.Token)
	}

	resp, err := httputil.DoWithRetry(ctx, t.client, req, 1)
	if err != nil {
		t.logger.Debug("tracking event not delivered",
			zap.String("event", ev.Name), zap.Error(err))
		return
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		t.logger.Debug("tracking endpoint rejected event",
			zap.String("event", ev.Name), zap.Int("status", resp.StatusCode))
	}
}
