package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/byrgyin/server-counter/internal/core/domain"
	"github.com/byrgyin/server-counter/internal/core/ports"
)

const (
	// SessionHeader carries the session token as an alternative to
	// "Authorization: Bearer".
	SessionHeader = "SessionId"

	userKey  = "user"
	tokenKey = "session_token"
)

// Session resolves the request's session token and injects the user into
// the echo context. Anonymous requests pass through; store failures abort
// the request so the error handler can report them.
func Session(resolver ports.SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := TokenFromHeaders(c)
			if token == "" {
				return next(c)
			}

			user, err := resolver.Resolve(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(tokenKey, token)
			if user != nil {
				c.Set(userKey, user)
			}
			return next(c)
		}
	}
}

// TokenFromHeaders reads the session token from "Authorization: Bearer <t>"
// or, failing that, the SessionId header.
func TokenFromHeaders(c echo.Context) string {
	h := c.Request().Header
	if auth := h.Get(echo.HeaderAuthorization); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(h.Get(SessionHeader))
}

// CurrentUser returns the user injected by Session, or nil for anonymous
// requests.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(userKey).(*domain.User)
	return user
}

// SessionToken returns the raw token seen by Session, if any.
func SessionToken(c echo.Context) string {
	token, _ := c.Get(tokenKey).(string)
	return token
}
