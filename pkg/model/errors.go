package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownReducer is wrapped by a TypeError for built-in names
	// that are not implemented.
	ErrUnknownReducer = errors.New("unknown built-in reducer")
	// ErrShutdown is returned when a helper stopped on request (exit status 1).
	ErrShutdown = errors.New("helper was shut down")
	// ErrRereduceShape is returned for partials that don't have one value
	// per reducer.
	ErrRereduceShape = errors.New("malformed rereduce partials")
	// ErrTooManyRetries is returned when the catch-up loop exceeds its ceiling.
	ErrTooManyRetries = errors.New("compaction exceeded the maximum number of retries")
)

// ValidationError reports a malformed view definition of a design document.
type ValidationError struct {
	View   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.View == "" {
		return e.Reason
	}
	return fmt.Sprintf("view %q: %s", e.View, e.Reason)
}

// TypeError is returned by built-in reducers that got input of the wrong type.
type TypeError struct {
	Reducer BuiltinName
	Reason  string
	Err     error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("builtin reducer %s: %s", e.Reducer, e.Reason)
}

func (e *TypeError) Unwrap() error {
	return e.Err
}

// ProcessError is returned for helper processes that could not be started,
// exited abnormally or spoke an invalid protocol.
type ProcessError struct {
	Helper  string
	Status  int
	Message string
	Err     error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("helper %s failed", e.Helper)
	if e.Status != 0 {
		msg += fmt.Sprintf(" with exit status %d", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IndexCompactorExit is the error for a rewrite helper that exited with
// a non zero status.
func IndexCompactorExit(helper string, status int, msg string) error {
	return &ProcessError{Helper: helper, Status: status, Message: msg}
}

// CoordinationError is returned if the concurrent updater terminated
// abnormally while handing over the group.
type CoordinationError struct {
	Reason string
}

func (e *CoordinationError) Error() string {
	return "updater died: " + e.Reason
}

func UpdaterDied(reason string) error {
	return &CoordinationError{Reason: reason}
}
