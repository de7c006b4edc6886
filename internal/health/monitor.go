// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package health polls the backend liveness endpoint and classifies
// connectivity for passive display. The monitor is fully independent of the
// search flow: its timer never blocks a search and a search never blocks it.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

// Status is the displayed connectivity classification.
type Status string

const (
	// StatusOnline renders nothing.
	StatusOnline Status = "online"

	// StatusOffline renders the red, pulsing indicator.
	StatusOffline Status = "offline"

	// StatusRecovering renders green for a fixed window after a success
	// that follows an offline period, then yields to online.
	StatusRecovering Status = "recovering"
)

// Monitor polls the health endpoint while the page is visible. Suspend
// stops all network activity; Resume picks it back up with an immediate
// check.
type Monitor struct {
	cfg    types.HealthConfig
	client *http.Client
	now    func() time.Time
	logger *zap.Logger

	mu          sync.Mutex
	status      Status
	recoveredAt time.Time
	suspended   bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewMonitor builds a monitor; Start begins polling.
func NewMonitor(cfg types.HealthConfig, client *http.Client, logger *zap.Logger) *Monitor {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		cfg:    cfg,
		client: client,
		now:    time.Now,
		logger: logger,
		status: StatusOnline,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start polls immediately and then on every interval until Stop or ctx end.
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

// Stop halts polling. Safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	m.mu.Unlock()
	<-m.done
}

// Status returns the current classification. The recovering window expires
// lazily: once RecoveringFor has passed since the recovery check, the
// status reads online again.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusRecovering && m.now().Sub(m.recoveredAt) >= m.cfg.RecoveringFor {
		m.status = StatusOnline
	}
	return m.status
}

// Suspend halts all network activity, the page-hidden analog. The displayed
// status freezes at its last value.
func (m *Monitor) Suspend() {
	m.mu.Lock()
	m.suspended = true
	m.mu.Unlock()
}

// Resume restarts polling with an immediate check.
func (m *Monitor) Resume() {
	m.mu.Lock()
	m.suspended = false
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	interval := m.cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	m.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-m.wake:
			m.poll(ctx)
		case <-time.After(interval):
			m.poll(ctx)
		}
	}
}

// poll performs one health check unless suspended.
func (m *Monitor) poll(ctx context.Context) {
	m.mu.Lock()
	if m.suspended {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	healthy := m.check(ctx) == nil

	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.status
	switch {
	case !healthy:
		m.status = StatusOffline
	case prev == StatusOffline:
		m.status = StatusRecovering
		m.recoveredAt = m.now()
	case prev == StatusRecovering:
		if m.now().Sub(m.recoveredAt) >= m.cfg.RecoveringFor {
			m.status = StatusOnline
		}
	default:
		m.status = StatusOnline
	}

	if m.status != prev {
		m.logger.Info("backend status changed",
			zap.String("from", string(prev)), zap.String("to", string(m.status)))
	}
}

// check performs the HTTP request and validates the payload.
func (m *Monitor) check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	if m.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", m.cfg.UserAgent)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		Status  string `json:"status"`
		Backend string `json:"backend"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decoding health payload: %w", err)
	}
	if payload.Status != "ok" && payload.Status != "healthy" {
		return fmt.Errorf("backend reports status %q", payload.Status)
	}
	return nil
}
