package ws

import (
	"errors"

	"github.com/byrgyin/server-counter/internal/core/domain"
)

// Error codes carried in ErrorBody.Code.
const (
	CodeBadRequest         = "bad_request"
	CodeUnauthenticated    = "unauthenticated"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUsernameTaken      = "username_taken"
	CodeTimerAlreadyActive = "timer_already_active"
	CodeNoActiveTimer      = "no_active_timer"
	CodeNotFound           = "not_found"
	CodeStoreUnavailable   = "store_unavailable"
	CodeInternal           = "internal"
)

// errorCode maps a service error to its wire code and client-safe message.
// The bool is false for unexpected errors, which the caller should log.
func errorCode(err error) (code, message string, known bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return CodeBadRequest, err.Error(), true
	case errors.Is(err, domain.ErrUnauthenticated):
		return CodeUnauthenticated, "authentication required", true
	case errors.Is(err, domain.ErrInvalidCredentials):
		return CodeInvalidCredentials, "invalid credentials", true
	case errors.Is(err, domain.ErrUsernameTaken):
		return CodeUsernameTaken, "username already taken", true
	case errors.Is(err, domain.ErrTimerAlreadyActive):
		return CodeTimerAlreadyActive, "a timer is already active", true
	case errors.Is(err, domain.ErrNoActiveTimer):
		return CodeNoActiveTimer, "no active timer", true
	case errors.Is(err, domain.ErrTimerNotFound):
		return CodeNotFound, "timer not found", true
	case errors.Is(err, domain.ErrStoreUnavailable):
		return CodeStoreUnavailable, "service temporarily unavailable", false
	default:
		return CodeInternal, "internal server error", false
	}
}
