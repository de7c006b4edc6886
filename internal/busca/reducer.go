// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package busca

import "github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"

// reassuranceCopy is shown when the channel is lost but the result is still
// on its way; the progress view must not reset.
const reassuranceCopy = "Finalizando a busca, os resultados chegam em instantes..."

// Event is one input to the view-state reducer. Events are applied in
// arrival order; ResultArrived always wins over anything channel-derived.
type Event interface{ buscaEvent() }

// ProgressArrived carries one live progress event.
type ProgressArrived struct {
	Event types.ProgressEvent
}

// ChannelLost signals the progress channel gave up on its transport.
type ChannelLost struct{}

// ResultArrived carries the authoritative search result.
type ResultArrived struct {
	Result *types.SearchResult
}

// SearchFailed carries a classified failure. Countdown is the scheduled
// auto-retry countdown in seconds, negative when no retry is scheduled.
type SearchFailed struct {
	Err       *SearchError
	Countdown int
}

// RetryTick decrements the retry countdown by one second.
type RetryTick struct{}

// RetryCancelled aborts the scheduled retry but keeps the error visible.
type RetryCancelled struct{}

func (ProgressArrived) buscaEvent() {}
func (ChannelLost) buscaEvent()     {}
func (ResultArrived) buscaEvent()   {}
func (SearchFailed) buscaEvent()    {}
func (RetryTick) buscaEvent()       {}
func (RetryCancelled) buscaEvent()  {}

// ViewState is the cumulative search view model the UI renders from.
type ViewState struct {
	Loading     bool
	LoadingStep string

	// Percent never regresses within one search, whatever the channel does.
	Percent int

	StatesProcessed int
	Resumo          string
	DownloadURL     string
	ExcelStatus     types.ArtifactStatus

	SSEDisconnected bool
	Result          *types.SearchResult
	Err             *SearchError

	// RetryCountdown is the remaining auto-retry wait in seconds, -1 when
	// none is scheduled.
	RetryCountdown int
}

// NewViewState returns the baseline state for a fresh search.
func NewViewState() ViewState {
	return ViewState{RetryCountdown: -1}
}

// Settled reports whether the search reached a state that needs no further
// waiting: a result arrived, or an error is displayed with no retry pending.
func (s ViewState) Settled() bool {
	if s.Result != nil {
		return true
	}
	return s.Err != nil && s.RetryCountdown < 0
}

// Reduce applies one event to the view state. The final result always wins:
// once Result is set, channel-derived events are ignored.
func Reduce(s ViewState, ev Event) ViewState {
	switch ev := ev.(type) {
	case ProgressArrived:
		if s.Result != nil {
			return s
		}
		return s.applyProgress(ev.Event)

	case ChannelLost:
		if s.Result != nil {
			return s
		}
		s.SSEDisconnected = true
		if s.Loading {
			s.LoadingStep = reassuranceCopy
		}
		return s

	case ResultArrived:
		s.Result = ev.Result
		s.Err = nil
		s.Loading = false
		s.Percent = 100
		s.RetryCountdown = -1
		if ev.Result.Resumo != "" {
			s.Resumo = ev.Result.Resumo
		}
		if ev.Result.DownloadURL != "" {
			s.DownloadURL = ev.Result.DownloadURL
		}
		if ev.Result.ExcelStatus != "" {
			s.ExcelStatus = ev.Result.ExcelStatus
		}
		return s

	case SearchFailed:
		if s.Result != nil {
			return s
		}
		s.Err = ev.Err
		s.Loading = false
		if ev.Err.Transient && ev.Countdown > 0 {
			s.RetryCountdown = ev.Countdown
		} else {
			s.RetryCountdown = -1
		}
		return s

	case RetryTick:
		if s.RetryCountdown > 0 {
			s.RetryCountdown--
		}
		return s

	case RetryCancelled:
		s.RetryCountdown = -1
		return s
	}
	return s
}

func (s ViewState) applyProgress(ev types.ProgressEvent) ViewState {
	if ev.Progress > s.Percent {
		s.Percent = ev.Progress
	}
	if ev.Message != "" {
		s.LoadingStep = ev.Message
	}
	if n := ev.DetailInt("estados_processados"); n > s.StatesProcessed {
		s.StatesProcessed = n
	}
	if ev.DetailBool("uf_all_complete") && s.Percent < 70 {
		s.Percent = 70
	}

	switch ev.Stage {
	case types.StageLLMReady:
		if resumo := ev.DetailString("resumo"); resumo != "" {
			s.Resumo = resumo
		}
	case types.StageExcelReady:
		if u := ev.DetailString("download_url"); u != "" {
			s.DownloadURL = u
		}
		if st := ev.DetailString("excel_status"); st != "" {
			s.ExcelStatus = types.ArtifactStatus(st)
		} else {
			s.ExcelStatus = types.ArtifactReady
		}
	case types.StageComplete:
		s.Percent = 100
		s.Loading = false
	case types.StageError:
		// A fatal stage alone does not settle the search; the
		// result-producing request decides the outcome.
	}
	return s
}
