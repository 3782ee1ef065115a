package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Every stage translates its own error
// into exactly one of these before it leaves the pipeline.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindConfiguration      Kind = "configuration_error"
	KindServiceInit        Kind = "service_init_error"
	KindImageDecode        Kind = "image_decode_error"
	KindUpstream           Kind = "upstream_error"
	KindResponseParse      Kind = "response_parse_error"
	KindIncompleteResponse Kind = "incomplete_response"
	KindResponseShape      Kind = "response_shape_error"
)

// ErrNotConfigured indicates the model access credential is missing.
var ErrNotConfigured = errors.New("ai credential not configured")

// ErrInit indicates the model client could not be constructed.
var ErrInit = errors.New("ai client init failed")

// StageEvent is one diagnostic entry from the pipeline. Events are collected
// in order and attached to the error on failure.
type StageEvent struct {
	Stage   string `json:"stage"`
	Outcome string `json:"outcome"`
}

// Error carries the failure kind, a human-readable detail and the stage trail
// accumulated up to the failing stage.
type Error struct {
	Kind    Kind
	Details string
	Trail   []StageEvent
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Details)
}

func (e *Error) Unwrap() error { return e.Err }

// Logs renders the trail as plain strings for error response bodies.
func (e *Error) Logs() []string {
	out := make([]string, 0, len(e.Trail))
	for _, ev := range e.Trail {
		out = append(out, ev.Stage+": "+ev.Outcome)
	}
	return out
}
