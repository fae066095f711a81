package loader

import (
	"errors"
	"fmt"

	"github.com/loadwise/pageloader/pkg/paging"
)

// Common errors returned by load cycles.
var (
	// ErrDataLimitReached is returned when a load past the end of the remote
	// data is requested after the source has signalled exhaustion.
	ErrDataLimitReached = errors.New("data limit reached")

	// ErrCancelled is returned when a cycle was cancelled before its result
	// could be committed. The fetch call itself is never aborted.
	ErrCancelled = errors.New("operation cancelled")

	// ErrTimeout is returned when a collaborator call exceeds the configured
	// call timeout. Unreachable with the default unbounded timeout.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidWindow is returned for a window with a malformed range.
	ErrInvalidWindow = errors.New("invalid request window")

	// ErrQueue signals an internal queue inconsistency, e.g. a loader closed
	// while cycles were still pending.
	ErrQueue = errors.New("work queue error")
)

// CycleError is an internally synthesized load-cycle failure with the
// context of the cycle it occurred in. Collaborator errors are never wrapped
// in a CycleError; they pass through to the caller unchanged.
type CycleError struct {
	Intent paging.Intent
	Window paging.Window
	Phase  string
	Err    error
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("load %s %s: %s: %v", e.Intent, e.Window, e.Phase, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *CycleError) Unwrap() error {
	return e.Err
}
