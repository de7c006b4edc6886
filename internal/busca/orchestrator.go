// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package busca

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tjsasakifln/PNCP-poc-sub006/internal/progress"
	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

// Orchestrator owns the lifecycle of search invocations: it issues the
// result-producing request, opens a progress channel keyed by the search
// id, folds both into one view state through the reducer, and drives the
// auto-retry countdown on transient failures.
//
// The request and the channel run concurrently with no mutual exclusion;
// the reducer makes the final result win whatever the channel did. Starting
// a new search tears the previous channel down and invalidates every
// pending callback of the older generation.
type Orchestrator struct {
	client    *Client
	transport progress.Transport
	cfg       types.BuscaConfig
	pcfg      types.ProgressConfig
	logger    *zap.Logger

	mu          sync.Mutex
	gen         int
	state       ViewState
	channel     *progress.Channel
	retryCancel chan struct{}
	lastParams  types.SearchParams
	ctx         context.Context
	onChange    func(ViewState)
}

// NewOrchestrator builds an Orchestrator. A nil transport disables the live
// channel; the search then reports only its final outcome.
func NewOrchestrator(client *Client, transport progress.Transport, cfg types.BuscaConfig, pcfg types.ProgressConfig, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		client:    client,
		transport: transport,
		cfg:       cfg,
		pcfg:      pcfg,
		logger:    logger,
		state:     NewViewState(),
	}
}

// OnChange registers the callback invoked with a state copy after every
// transition. Set it before the first Buscar.
func (o *Orchestrator) OnChange(fn func(ViewState)) {
	o.mu.Lock()
	o.onChange = fn
	o.mu.Unlock()
}

// State returns a copy of the current view state.
func (o *Orchestrator) State() ViewState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Buscar starts a search and returns immediately; progress arrives through
// OnChange. Any previous search's channel, countdown, and late callbacks
// are invalidated first.
func (o *Orchestrator) Buscar(ctx context.Context, params types.SearchParams) {
	if params.SearchID == "" {
		params.SearchID = uuid.NewString()
	}

	o.mu.Lock()
	o.gen++
	gen := o.gen
	if o.channel != nil {
		old := o.channel
		o.channel = nil
		go old.Close()
	}
	if o.retryCancel != nil {
		close(o.retryCancel)
		o.retryCancel = nil
	}
	o.lastParams = params
	o.ctx = ctx
	o.state = NewViewState()
	o.state.Loading = true
	o.state.LoadingStep = "Conectando..."
	st, cb := o.state, o.onChange
	o.mu.Unlock()

	if cb != nil {
		cb(st)
	}
	o.logger.Info("search started", zap.String("search_id", params.SearchID),
		zap.String("setor", params.Setor))

	if o.transport != nil {
		ch := progress.Open(ctx, o.transport, params.SearchID, progress.Options{
			RetryDelay: o.pcfg.RetryDelay,
			MaxRetries: o.pcfg.MaxRetries,
			Logger:     o.logger,
			OnEvent: func(ev types.ProgressEvent) {
				o.dispatch(gen, ProgressArrived{Event: ev})
			},
			OnError: func(error) {
				o.dispatch(gen, ChannelLost{})
			},
		})

		o.mu.Lock()
		if gen == o.gen {
			o.channel = ch
		} else {
			go ch.Close()
		}
		o.mu.Unlock()
	}

	go o.execute(ctx, gen, params)
}

// RetryNow skips the remaining countdown and retries immediately. A no-op
// when no retry is scheduled.
func (o *Orchestrator) RetryNow() {
	o.mu.Lock()
	if o.retryCancel == nil {
		o.mu.Unlock()
		return
	}
	close(o.retryCancel)
	o.retryCancel = nil
	gen := o.gen
	o.mu.Unlock()

	o.retry(gen)
}

// CancelRetry aborts the scheduled retry. The error stays displayed and no
// further automatic retry happens for this failure; a new Buscar call is
// the manual path.
func (o *Orchestrator) CancelRetry() {
	o.mu.Lock()
	if o.retryCancel == nil {
		o.mu.Unlock()
		return
	}
	close(o.retryCancel)
	o.retryCancel = nil
	gen := o.gen
	o.mu.Unlock()

	o.dispatch(gen, RetryCancelled{})
}

// Close tears down the active channel and any pending countdown.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.gen++ // invalidate late callbacks
	ch := o.channel
	o.channel = nil
	if o.retryCancel != nil {
		close(o.retryCancel)
		o.retryCancel = nil
	}
	o.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
}

// execute performs the result-producing request for one generation.
func (o *Orchestrator) execute(ctx context.Context, gen int, params types.SearchParams) {
	result, err := o.client.Buscar(ctx, params)
	if err == nil {
		o.closeChannel(gen)
		o.dispatch(gen, ResultArrived{Result: result})
		o.logger.Info("search completed", zap.String("search_id", params.SearchID),
			zap.Int("total", result.Total), zap.Bool("partial", result.IsPartial))
		return
	}

	var serr *SearchError
	if !errors.As(err, &serr) {
		serr = &SearchError{
			Message:    err.Error(),
			RawMessage: err.Error(),
			SearchID:   params.SearchID,
			Timestamp:  time.Now(),
		}
	}

	countdown := -1
	if serr.Transient {
		countdown = o.cfg.RetryCountdown
		if countdown <= 0 {
			countdown = 10
		}
	}

	o.logger.Warn("search failed", zap.String("search_id", params.SearchID),
		zap.Int("http_status", serr.HTTPStatus), zap.String("error_code", serr.ErrorCode),
		zap.Bool("transient", serr.Transient), zap.Error(serr))

	// Register the cancel handle before the failure becomes visible, so a
	// CancelRetry issued the moment the error renders cannot miss it.
	var cancel chan struct{}
	if countdown > 0 {
		cancel = o.registerRetry(gen)
	}
	o.dispatch(gen, SearchFailed{Err: serr, Countdown: countdown})
	if cancel != nil {
		o.startCountdown(ctx, gen, countdown, cancel)
	}
}

func (o *Orchestrator) registerRetry(gen int) chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return nil
	}
	cancel := make(chan struct{})
	o.retryCancel = cancel
	return cancel
}

// startCountdown runs the countdown, one tick per second, then retries.
// Completion fires at most once; CancelRetry, RetryNow, teardown, or a
// newer search all stop the timer before it can mutate anything.
func (o *Orchestrator) startCountdown(ctx context.Context, gen, seconds int, cancel chan struct{}) {
	tick := o.cfg.CountdownTick
	if tick <= 0 {
		tick = time.Second
	}

	go func() {
		for remaining := seconds; remaining > 0; remaining-- {
			select {
			case <-ctx.Done():
				return
			case <-cancel:
				return
			case <-time.After(tick):
				o.dispatch(gen, RetryTick{})
			}
		}

		o.mu.Lock()
		if o.retryCancel == cancel {
			o.retryCancel = nil
		}
		o.mu.Unlock()
		o.retry(gen)
	}()
}

// retry re-runs the last search, skipped when a newer search already
// superseded this generation.
func (o *Orchestrator) retry(gen int) {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return
	}
	params := o.lastParams
	params.SearchID = "" // a retry is a fresh attempt with its own channel
	ctx := o.ctx
	o.mu.Unlock()

	o.logger.Info("retrying search after transient failure")
	o.Buscar(ctx, params)
}

// closeChannel shuts the generation's channel down once the result arrived.
func (o *Orchestrator) closeChannel(gen int) {
	o.mu.Lock()
	if gen != o.gen || o.channel == nil {
		o.mu.Unlock()
		return
	}
	ch := o.channel
	o.channel = nil
	o.mu.Unlock()

	go ch.Close()
}

// dispatch applies an event for one generation; events from superseded
// generations are dropped, which makes late timer and transport callbacks
// harmless.
func (o *Orchestrator) dispatch(gen int, ev Event) {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return
	}
	o.state = Reduce(o.state, ev)
	st, cb := o.state, o.onChange
	o.mu.Unlock()

	if cb != nil {
		cb(st)
	}
}
