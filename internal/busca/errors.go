// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package busca

import (
	"encoding/json"
	"strings"
	"time"
)

// SearchError is the structured failure of a search request. Transient
// errors drive an automatic retry countdown; permanent ones wait for the
// user. The diagnostic identifiers are carried whenever the backend
// supplies them.
type SearchError struct {
	// Message is the user-facing text, already mapped from the error code
	// when one is known.
	Message string `json:"message"`

	// RawMessage is the backend's original detail text.
	RawMessage string `json:"raw_message,omitempty"`

	ErrorCode     string    `json:"error_code,omitempty"`
	SearchID      string    `json:"search_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	HTTPStatus    int       `json:"http_status,omitempty"`
	Timestamp     time.Time `json:"timestamp"`

	// Transient is set at creation time from the status and message.
	Transient bool `json:"transient"`
}

func (e *SearchError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.RawMessage
}

// Report renders the error as an indented JSON block for support
// diagnostics; the CLI prints it so users can paste it into a ticket.
func (e *SearchError) Report() string {
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return e.Error()
	}
	return string(b)
}

// transientSignatures are lowercase substrings of network-level failures
// that warrant a retry even without an HTTP status.
var transientSignatures = []string{
	"fetch failed",
	"networkerror",
	"econnrefused",
	"connection refused",
	"connection reset",
	"no such host",
	"client.timeout",
}

// IsTransientError classifies a failure. HTTP 502, 503, and 504 are
// transient; any other status is permanent. With no status at all the
// message is matched against known network-failure signatures.
func IsTransientError(status int, message string) bool {
	switch status {
	case 502, 503, 504:
		return true
	}
	if status > 0 {
		return false
	}

	msg := strings.ToLower(message)
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// errorCodeMessages maps backend error codes to user-facing copy.
var errorCodeMessages = map[string]string{
	"SOURCE_UNAVAILABLE": "Uma das fontes de dados está indisponível no momento. Tente novamente em instantes.",
	"TIMEOUT":            "A busca demorou mais que o esperado e foi interrompida. Tente novamente.",
	"QUOTA_EXCEEDED":     "Você atingiu o limite de buscas do seu plano. Considere fazer um upgrade.",
	"RATE_LIMIT":         "Muitas buscas em sequência. Aguarde alguns segundos antes de tentar de novo.",
	"ALL_SOURCES_FAILED": "Nenhuma fonte de dados respondeu. Tente novamente em alguns minutos.",
	"VALIDATION_ERROR":   "Os parâmetros da busca são inválidos. Revise o setor e o período informados.",
	"INTERNAL_ERROR":     "Erro interno no servidor de buscas. Nossa equipe já foi notificada.",
}

// CodeMessage returns the copy for a known error code. The second return is
// false for unknown codes, so callers can tell "unknown code" apart from a
// known code whose copy happens to be empty.
func CodeMessage(code string) (string, bool) {
	msg, ok := errorCodeMessages[code]
	return msg, ok
}
