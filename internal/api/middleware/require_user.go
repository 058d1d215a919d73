package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/byrgyin/server-counter/internal/core/domain"
)

// RequireUser rejects anonymous requests. It must run after Session.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return domain.ErrUnauthenticated
			}
			return next(c)
		}
	}
}
