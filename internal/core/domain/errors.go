package domain

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrTimerNotFound      = errors.New("timer not found")
	ErrTimerAlreadyActive = errors.New("timer already active")
	ErrNoActiveTimer      = errors.New("no active timer")

	// ErrStoreUnavailable marks timeouts and connection failures of the
	// backing store. Repositories wrap the driver error alongside it.
	ErrStoreUnavailable = errors.New("store unavailable")
)
