// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Stage identifies a step of an in-flight search. The vocabulary is fixed by
// the backend; unknown stages are treated as non-terminal.
type Stage string

const (
	StageConnecting Stage = "connecting"
	StageSearching  Stage = "searching"
	StageFiltering  Stage = "filtering"
	StageLLMReady   Stage = "llm_ready"
	StageExcelReady Stage = "excel_ready"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// Terminal reports whether no further progress events are expected after
// this stage. llm_ready and excel_ready signal partial readiness of a
// sub-artifact and are not terminal.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// ProgressEvent is one discrete update about an in-flight search. Events are
// consumed once and folded into cumulative view state; they are never
// persisted. Progress is expected to be non-decreasing but consumers must
// tolerate regressions.
type ProgressEvent struct {
	Stage    Stage          `json:"stage"`
	Progress int            `json:"progress"`
	Message  string         `json:"message"`
	Detail   map[string]any `json:"detail,omitempty"`
}

// DetailString returns the named detail field when it is a string.
func (e ProgressEvent) DetailString(key string) string {
	if s, ok := e.Detail[key].(string); ok {
		return s
	}
	return ""
}

// DetailBool returns the named detail field when it is a bool.
func (e ProgressEvent) DetailBool(key string) bool {
	b, _ := e.Detail[key].(bool)
	return b
}

// DetailInt returns the named detail field when it is numeric. JSON decoding
// yields float64 for numbers, so both forms are accepted.
func (e ProgressEvent) DetailInt(key string) int {
	switch v := e.Detail[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
