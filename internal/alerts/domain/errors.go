package alerts

import "errors"

var (
	// ErrInvalid marks an alert record that fails decoding.
	ErrInvalid = errors.New("alert: invalid")
	// ErrNotFound indicates a missing alert.
	ErrNotFound = errors.New("alert: not found")
	// ErrTransitionNotAllowed rejects a transition from the current status.
	ErrTransitionNotAllowed = errors.New("alert: transition not allowed")
)
