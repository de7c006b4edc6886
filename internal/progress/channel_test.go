// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

// fakeTransport scripts one behavior per connection attempt.
type fakeTransport struct {
	mu       sync.Mutex
	attempts int
	script   []func(ctx context.Context, onOpen func(), onEvent func(types.ProgressEvent)) error
}

func (f *fakeTransport) Stream(ctx context.Context, _ string, onOpen func(), onEvent func(types.ProgressEvent)) error {
	f.mu.Lock()
	i := f.attempts
	f.attempts++
	f.mu.Unlock()
	if i >= len(f.script) {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.script[i](ctx, onOpen, onEvent)
}

func (f *fakeTransport) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// collector accumulates events behind a mutex.
type collector struct {
	mu     sync.Mutex
	events []types.ProgressEvent
}

func (c *collector) add(ev types.ProgressEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) stages() []types.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Stage, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Stage
	}
	return out
}

func fastOptions(col *collector, onError func(error)) Options {
	return Options{
		RetryDelay: time.Millisecond,
		OnEvent:    col.add,
		OnError:    onError,
	}
}

func TestChannel_RetryThenDisconnect(t *testing.T) {
	ft := &fakeTransport{script: []func(context.Context, func(), func(types.ProgressEvent)) error{
		func(_ context.Context, onOpen func(), _ func(types.ProgressEvent)) error {
			onOpen()
			return errors.New("transport reset")
		},
		func(_ context.Context, _ func(), _ func(types.ProgressEvent)) error {
			return errors.New("transport reset again")
		},
	}}

	var errCount int32
	col := &collector{}
	c := Open(context.Background(), ft, "s-1", fastOptions(col, func(error) {
		atomic.AddInt32(&errCount, 1)
	}))
	defer c.Close()

	require.Eventually(t, c.Disconnected, time.Second, time.Millisecond)
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, 2, ft.attemptCount())
	assert.Equal(t, int32(1), atomic.LoadInt32(&errCount), "onError fires exactly once")
}

func TestChannel_FirstErrorDoesNotDisconnect(t *testing.T) {
	retryStarted := make(chan struct{})
	release := make(chan struct{})
	ft := &fakeTransport{script: []func(context.Context, func(), func(types.ProgressEvent)) error{
		func(_ context.Context, onOpen func(), _ func(types.ProgressEvent)) error {
			onOpen()
			return errors.New("transport reset")
		},
		func(ctx context.Context, _ func(), _ func(types.ProgressEvent)) error {
			close(retryStarted)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return errors.New("transport reset")
		},
	}}

	col := &collector{}
	c := Open(context.Background(), ft, "s-1", fastOptions(col, nil))
	defer c.Close()

	<-retryStarted
	assert.False(t, c.Disconnected(), "a single transport error must not disconnect")
	close(release)

	require.Eventually(t, c.Disconnected, time.Second, time.Millisecond)
}

func TestChannel_RetrySucceeds(t *testing.T) {
	ft := &fakeTransport{script: []func(context.Context, func(), func(types.ProgressEvent)) error{
		func(_ context.Context, onOpen func(), _ func(types.ProgressEvent)) error {
			onOpen()
			return errors.New("transport reset")
		},
		func(ctx context.Context, onOpen func(), onEvent func(types.ProgressEvent)) error {
			onOpen()
			onEvent(types.ProgressEvent{Stage: types.StageSearching, Progress: 40})
			onEvent(types.ProgressEvent{Stage: types.StageComplete, Progress: 100})
			<-ctx.Done()
			return ctx.Err()
		},
	}}

	col := &collector{}
	done := make(chan struct{})
	c := Open(context.Background(), ft, "s-1", Options{
		RetryDelay: time.Millisecond,
		OnEvent: func(ev types.ProgressEvent) {
			col.add(ev)
			if ev.Stage == types.StageComplete {
				close(done)
			}
		},
	})
	defer c.Close()

	<-done
	assert.False(t, c.Disconnected())
	assert.Equal(t, []types.Stage{types.StageSearching, types.StageComplete}, col.stages())
}

func TestChannel_NonTerminalStagesKeepTransportOpen(t *testing.T) {
	sawCancel := make(chan struct{})
	var cancelledAtPartial atomic.Bool
	ft := &fakeTransport{script: []func(context.Context, func(), func(types.ProgressEvent)) error{
		func(ctx context.Context, onOpen func(), onEvent func(types.ProgressEvent)) error {
			onOpen()
			onEvent(types.ProgressEvent{Stage: types.StageLLMReady, Progress: 80,
				Detail: map[string]any{"resumo": "3 oportunidades relevantes"}})
			onEvent(types.ProgressEvent{Stage: types.StageExcelReady, Progress: 90,
				Detail: map[string]any{"download_url": "/files/busca.xlsx"}})
			cancelledAtPartial.Store(ctx.Err() != nil)
			onEvent(types.ProgressEvent{Stage: types.StageComplete, Progress: 100})
			<-ctx.Done()
			close(sawCancel)
			return ctx.Err()
		},
	}}

	col := &collector{}
	c := Open(context.Background(), ft, "s-1", fastOptions(col, nil))
	defer c.Close()

	select {
	case <-sawCancel:
	case <-time.After(time.Second):
		t.Fatal("terminal stage did not close the transport")
	}

	assert.False(t, c.Disconnected())
	assert.False(t, cancelledAtPartial.Load(), "partial-artifact stages must not close the transport")
	assert.Equal(t, 1, ft.attemptCount())
	assert.Equal(t,
		[]types.Stage{types.StageLLMReady, types.StageExcelReady, types.StageComplete},
		col.stages())
}

func TestChannel_FatalErrorStageIsTerminal(t *testing.T) {
	ft := &fakeTransport{script: []func(context.Context, func(), func(types.ProgressEvent)) error{
		func(ctx context.Context, onOpen func(), onEvent func(types.ProgressEvent)) error {
			onOpen()
			onEvent(types.ProgressEvent{Stage: types.StageError, Message: "todas as fontes falharam"})
			<-ctx.Done()
			return ctx.Err()
		},
	}}

	var errCount int32
	col := &collector{}
	c := Open(context.Background(), ft, "s-1", fastOptions(col, func(error) {
		atomic.AddInt32(&errCount, 1)
	}))
	c.Close()

	assert.Equal(t, 1, ft.attemptCount(), "a fatal stage must not trigger a reconnect")
	assert.False(t, c.Disconnected())
	assert.Equal(t, int32(0), atomic.LoadInt32(&errCount))
}

func TestChannel_CloseTearsDown(t *testing.T) {
	ft := &fakeTransport{} // empty script: every attempt blocks on ctx
	col := &collector{}
	var errCount int32
	c := Open(context.Background(), ft, "s-1", fastOptions(col, func(error) {
		atomic.AddInt32(&errCount, 1)
	}))

	require.Eventually(t, func() bool { return ft.attemptCount() == 1 },
		time.Second, time.Millisecond)
	c.Close()

	assert.False(t, c.Disconnected(), "teardown is not a disconnect")
	assert.Equal(t, int32(0), atomic.LoadInt32(&errCount))
	assert.Equal(t, 1, ft.attemptCount())
}

func TestChannel_NewInstanceStartsFresh(t *testing.T) {
	failing := &fakeTransport{script: []func(context.Context, func(), func(types.ProgressEvent)) error{
		func(context.Context, func(), func(types.ProgressEvent)) error { return errors.New("down") },
		func(context.Context, func(), func(types.ProgressEvent)) error { return errors.New("down") },
	}}

	col := &collector{}
	old := Open(context.Background(), failing, "s-1", fastOptions(col, nil))
	require.Eventually(t, old.Disconnected, time.Second, time.Millisecond)
	old.Close()

	// A new search id means a new instance at the connecting baseline.
	fresh := Open(context.Background(), &fakeTransport{}, "s-2", fastOptions(col, nil))
	defer fresh.Close()
	assert.False(t, fresh.Disconnected())
}
