// Package events defines the typed event model shared by the workflow
// orchestrator, the autonomous agent and the chat service. Producers expose a
// lazy, finite, non-restartable sequence; the transport adapter pulls it and
// relays each event to the caller. Cancellation is the consumer ceasing to
// pull, observed by the producer at its next suspension point.
package events

import "iter"

type Type string

const (
	TypeStageStarted   Type = "stage-started"
	TypeStageCompleted Type = "stage-completed"
	TypeToken          Type = "token"
	TypeError          Type = "error"
	TypeDone           Type = "done"
)

// Kind classifies error events so callers can distinguish degraded-mode
// notices from terminal failures.
type Kind string

const (
	KindProviderUnavailable  Kind = "provider_unavailable"
	KindUpstreamError        Kind = "upstream_error"
	KindRetrievalUnavailable Kind = "retrieval_unavailable"
	KindPersistenceFailure   Kind = "persistence_failure"
	KindCircuitBreaker       Kind = "circuit_breaker_tripped"
	KindScrapeFailed         Kind = "scrape_failed"
	KindInternal             Kind = "internal"
)

// Status marks how a run ended in its done event.
type Status string

const (
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusStopped        Status = "stopped"
	StatusBreakerTripped Status = "breaker_tripped"
)

type Event struct {
	Type    Type   `json:"type"`
	Stage   string `json:"stage,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

type DonePayload struct {
	Status Status `json:"status"`
	Result any    `json:"result,omitempty"`
}

// Stream is the producer side of the streaming transport. An error value in
// the second position terminates the sequence.
type Stream = iter.Seq2[Event, error]

func StageStarted(stage string) Event {
	return Event{Type: TypeStageStarted, Stage: stage}
}

func StageCompleted(stage string, payload any) Event {
	return Event{Type: TypeStageCompleted, Stage: stage, Payload: payload}
}

func Token(text string) Event {
	return Event{Type: TypeToken, Payload: text}
}

func Error(kind Kind, message string) Event {
	return Event{Type: TypeError, Payload: ErrorPayload{Kind: kind, Message: message}}
}

func ErrorAt(stage string, kind Kind, message string) Event {
	return Event{Type: TypeError, Stage: stage, Payload: ErrorPayload{Kind: kind, Message: message}}
}

func Done(status Status, result any) Event {
	return Event{Type: TypeDone, Payload: DonePayload{Status: status, Result: result}}
}
