package donorperfect

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport covers network failures, timeouts and non-200 responses.
	ErrTransport = errors.New("donorperfect: transport error")
	// ErrProtocol means the response could not be understood, e.g. malformed XML or a missing id.
	ErrProtocol = errors.New("donorperfect: protocol error")
	// ErrRejected means the API answered with an explicit error indicator.
	ErrRejected = errors.New("donorperfect: request rejected")
)

// APIError carries the failed action and the reason reported by (or derived from) the API.
type APIError struct {
	Kind   error
	Action string
	Reason string
	Err    error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Action, e.Reason)
}

func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message is the operator facing text stored on ledger rows.
func (e *APIError) Message() string {
	if e.Err != nil && e.Reason == "" {
		return e.Err.Error()
	}
	return e.Reason
}

// Retryable reports whether err is a transient failure worth retrying later.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrProtocol)
}

func newError(kind error, action, reason string, err error) *APIError {
	return &APIError{Kind: kind, Action: action, Reason: reason, Err: err}
}
