// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress maintains the live progress feed for one in-flight
// search. The connection lifecycle is an explicit state machine over an
// injected transport, so the same logic drives the SSE stream and the
// polling fallback and can be tested with a fake.
package progress

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

// ConnState is the channel connection state. Transitions:
// connecting → open on handshake; open → retrying on a transport error;
// retrying → open when the retry succeeds; retrying → disconnected when it
// does not. disconnected is terminal for the instance.
type ConnState string

const (
	StateConnecting   ConnState = "connecting"
	StateOpen         ConnState = "open"
	StateRetrying     ConnState = "retrying"
	StateDisconnected ConnState = "disconnected"
)

// errStreamEnded marks a stream that closed before delivering a terminal
// stage; the channel treats it like any other transport error.
var errStreamEnded = errors.New("progress stream ended before a terminal stage")

// Transport opens one streaming attempt for a search id. Stream connects,
// calls onOpen once the connection is established, and delivers each event
// to onEvent until the stream or the context ends. The channel, not the
// transport, decides what a terminal event means: it cancels ctx when one
// arrives.
type Transport interface {
	Stream(ctx context.Context, searchID string, onOpen func(), onEvent func(types.ProgressEvent)) error
}

// Options configures a channel instance.
type Options struct {
	// RetryDelay is the wait before a reconnect attempt (default 2s).
	RetryDelay time.Duration

	// MaxRetries is the number of reconnect attempts after the first
	// transport error (default 1; negative means none).
	MaxRetries int

	// OnEvent receives every progress event in arrival order.
	OnEvent func(types.ProgressEvent)

	// OnError fires exactly once, when the channel becomes disconnected.
	OnError func(error)

	Logger *zap.Logger
}

// Channel is one live progress feed. An instance serves exactly one search
// id; a new search means a new instance, which starts over at connecting
// with a clear disconnected flag.
type Channel struct {
	transport  Transport
	searchID   string
	retryDelay time.Duration
	maxRetries int
	onEvent    func(types.ProgressEvent)
	onError    func(error)
	logger     *zap.Logger

	mu           sync.Mutex
	state        ConnState
	disconnected bool

	terminal atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// Open starts a channel for searchID and returns immediately; events arrive
// on the Options callbacks from a background goroutine. Close tears the
// channel down.
func Open(ctx context.Context, t Transport, searchID string, opts Options) *Channel {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	cctx, cancel := context.WithCancel(ctx)
	c := &Channel{
		transport:  t,
		searchID:   searchID,
		retryDelay: opts.RetryDelay,
		maxRetries: opts.MaxRetries,
		onEvent:    opts.OnEvent,
		onError:    opts.OnError,
		logger:     opts.Logger,
		state:      StateConnecting,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go c.run(cctx)
	return c
}

// State returns the current connection state.
func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Disconnected reports whether the channel gave up on its transport. A
// disconnected channel is not a user-facing error by itself; the final
// result, when it arrives, supersedes it.
func (c *Channel) Disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

// Close tears down any open transport and waits for the background
// goroutine to exit. Late transport callbacks cannot mutate state after
// Close returns. Safe to call more than once.
func (c *Channel) Close() {
	c.cancel()
	<-c.done
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	for attempt := 0; ; attempt++ {
		err := c.transport.Stream(ctx, c.searchID,
			func() { c.setState(StateOpen) },
			c.handleEvent,
		)

		// A terminal stage or a teardown ends the channel quietly.
		if c.terminal.Load() || ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errStreamEnded
		}

		if attempt >= c.maxRetries {
			c.mu.Lock()
			c.state = StateDisconnected
			c.disconnected = true
			c.mu.Unlock()
			c.logger.Warn("progress channel disconnected",
				zap.String("search_id", c.searchID),
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			if c.onError != nil {
				c.onError(err)
			}
			return
		}

		c.setState(StateRetrying)
		c.logger.Info("progress transport error, retrying",
			zap.String("search_id", c.searchID),
			zap.Duration("delay", c.retryDelay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retryDelay):
		}
	}
}

// handleEvent forwards an event and, on a terminal stage, closes the
// transport by cancelling the stream context. Non-terminal stages, partial
// artifact signals included, leave the transport open.
func (c *Channel) handleEvent(ev types.ProgressEvent) {
	if c.onEvent != nil {
		c.onEvent(ev)
	}
	if ev.Stage.Terminal() {
		c.terminal.Store(true)
		c.cancel()
	}
}

func (c *Channel) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
