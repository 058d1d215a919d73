package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/byrgyin/server-counter/internal/api/middleware"
	"github.com/byrgyin/server-counter/internal/core/domain"
)

// requireUser returns the user resolved by the Session middleware and fails
// fast for anonymous callers, before any service call.
func requireUser(c echo.Context) (*domain.User, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}
