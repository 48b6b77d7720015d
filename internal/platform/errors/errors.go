package apperrors

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrNoActiveSession     = errors.New("no active session")
	ErrActiveSessionExists = errors.New("active session already exists")
	ErrSessionClosed       = errors.New("session already closed")
	// ErrTransient marks failures of the remote store that the caller may retry.
	ErrTransient = errors.New("remote store unavailable")
)

// IsConflict reports whether err means another session is already running.
func IsConflict(err error) bool {
	return errors.Is(err, ErrActiveSessionExists)
}
