// Package errors provides the structured error taxonomy shared by every
// component of the ingestion pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind is a stable, machine-readable classification of a failure. Callers
// (worker retry logic, the HTTP layer) branch on Kind, never on message text.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidArgument    Kind = "invalid_argument"
	KindConflict           Kind = "conflict"
	KindTransientUpstream  Kind = "transient_upstream"
	KindPermanentUpstream  Kind = "permanent_upstream"
	KindCapabilityDisabled Kind = "capability_disabled"
	KindCancelled          Kind = "cancelled"
	KindInternal           Kind = "internal"
)

// Error is the structured error type produced by every package in this
// module. It implements error and carries enough context to persist a
// failure reason on an ImagePage row or a crawler discovery report.
type Error struct {
	Kind      Kind
	Message   string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ToMap converts the error into a map suitable for storage in a JSONB
// column (ImagePage.ocr_state failure reason, crawler discovery_failed
// report).
func (e *Error) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"kind":      string(e.Kind),
		"message":   e.Message,
		"timestamp": e.Timestamp,
	}
	for k, v := range e.Details {
		m[k] = v
	}
	if e.Cause != nil {
		m["cause"] = e.Cause.Error()
	}
	return m
}

func newErr(kind Kind, message string, cause error, details map[string]interface{}) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now(),
		Details:   details,
		Cause:     cause,
	}
}

func NotFound(what, id string) *Error {
	return newErr(KindNotFound, fmt.Sprintf("%s not found: %s", what, id), nil, nil)
}

func InvalidArgument(message string) *Error {
	return newErr(KindInvalidArgument, message, nil, nil)
}

func Conflict(message string, details map[string]interface{}) *Error {
	return newErr(KindConflict, message, nil, details)
}

func TransientUpstream(message string, cause error) *Error {
	return newErr(KindTransientUpstream, message, cause, nil)
}

func PermanentUpstream(message string, cause error) *Error {
	return newErr(KindPermanentUpstream, message, cause, nil)
}

func CapabilityDisabled(capability string) *Error {
	return newErr(KindCapabilityDisabled, fmt.Sprintf("capability disabled: %s", capability), nil,
		map[string]interface{}{"capability": capability})
}

func Cancelled(message string) *Error {
	return newErr(KindCancelled, message, nil, nil)
}

func Internal(message string, cause error) *Error {
	return newErr(KindInternal, message, cause, nil)
}

// KindOf extracts the Kind from err, defaulting to KindInternal for errors
// that did not originate from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Retryable reports whether a worker should retry the operation that
// produced err rather than moving the unit of work straight to a terminal
// failed state.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransientUpstream, KindInternal:
		return true
	default:
		return false
	}
}
