package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const banner = "timetrack: work timer service (REST under /api, WebSocket at /ws)"

// Root handles GET /.
func Root(c echo.Context) error {
	return c.String(http.StatusOK, banner)
}
