// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

// healthServer serves ok or 503 depending on the healthy flag.
func healthServer(healthy *int32, calls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(calls, 1)
		if atomic.LoadInt32(healthy) == 0 {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"status":"ok","backend":"pncp-aggregator"}`)
	}))
}

func testHealthConfig(url string) types.HealthConfig {
	return types.HealthConfig{
		URL:           url,
		PollInterval:  2 * time.Millisecond,
		RecoveringFor: 3 * time.Second,
	}
}

func TestMonitor_OnlineWhenHealthy(t *testing.T) {
	healthy, calls := int32(1), int32(0)
	ts := healthServer(&healthy, &calls)
	defer ts.Close()

	m := NewMonitor(testHealthConfig(ts.URL), ts.Client(), nil)
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 },
		time.Second, time.Millisecond)
	assert.Equal(t, StatusOnline, m.Status())
}

func TestMonitor_OfflineOnFailure(t *testing.T) {
	healthy, calls := int32(0), int32(0)
	ts := healthServer(&healthy, &calls)
	defer ts.Close()

	m := NewMonitor(testHealthConfig(ts.URL), ts.Client(), nil)
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool { return m.Status() == StatusOffline },
		time.Second, time.Millisecond)
}

func TestMonitor_RecoveringWindowThenOnline(t *testing.T) {
	healthy, calls := int32(0), int32(0)
	ts := healthServer(&healthy, &calls)
	defer ts.Close()

	m := NewMonitor(testHealthConfig(ts.URL), ts.Client(), nil)
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool { return m.Status() == StatusOffline },
		time.Second, time.Millisecond)

	atomic.StoreInt32(&healthy, 1)
	require.Eventually(t, func() bool { return m.Status() == StatusRecovering },
		time.Second, time.Millisecond)

	// Exactly RecoveringFor after the successful check, the status reads
	// online again. The clock is injected so no real waiting happens.
	m.mu.Lock()
	m.recoveredAt = time.Now().Add(-3 * time.Second)
	m.mu.Unlock()
	assert.Equal(t, StatusOnline, m.Status())
}

func TestMonitor_SuspendStopsAllNetworkActivity(t *testing.T) {
	healthy, calls := int32(1), int32(0)
	ts := healthServer(&healthy, &calls)
	defer ts.Close()

	m := NewMonitor(testHealthConfig(ts.URL), ts.Client(), nil)
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 },
		time.Second, time.Millisecond)

	m.Suspend()
	// Give in-flight polls a moment to drain, then the count must freeze.
	time.Sleep(5 * time.Millisecond)
	frozen := atomic.LoadInt32(&calls)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, atomic.LoadInt32(&calls), "no polls while suspended")

	m.Resume()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) > frozen },
		time.Second, time.Millisecond)
}

func TestMonitor_RejectsUnhealthyPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"degraded","backend":"pncp-aggregator"}`)
	}))
	defer ts.Close()

	m := NewMonitor(testHealthConfig(ts.URL), ts.Client(), nil)
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool { return m.Status() == StatusOffline },
		time.Second, time.Millisecond)
}
