package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/byrgyin/server-counter/internal/core/domain"
	"github.com/byrgyin/server-counter/internal/core/ports"
)

// TimerHandler handles HTTP requests for timer operations.
type TimerHandler struct {
	service ports.TimerService
}

func NewTimerHandler(service ports.TimerService) *TimerHandler {
	return &TimerHandler{service: service}
}

// List handles GET /api/timers?isActive=true|false.
//
// @Summary      List timers by status
// @Tags         timers
// @Produce      json
// @Security     SessionAuth
// @Param        isActive  query     boolean  true  "true for running timers, false for stopped ones"
// @Success      200       {array}   domain.Timer
// @Failure      400       {object}  errorResponse
// @Failure      401       {object}  errorResponse
// @Failure      503       {object}  errorResponse
// @Router       /api/timers [get]
func (h *TimerHandler) List(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var active bool
	switch c.QueryParam("isActive") {
	case "true":
		active = true
	case "false":
		active = false
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "isActive must be true or false")
	}

	timers, err := h.service.List(c.Request().Context(), user, active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, timersOrEmpty(timers))
}

// Get handles GET /api/timers/:id. The response is an array holding the
// timer, or empty when the caller does not own a timer with that id.
//
// @Summary      Get a timer by id
// @Tags         timers
// @Produce      json
// @Security     SessionAuth
// @Param        id   path      string  true  "Timer id"
// @Success      200  {array}   domain.Timer
// @Failure      401  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /api/timers/{id} [get]
func (h *TimerHandler) Get(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	timer, err := h.service.Get(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return err
	}
	if timer == nil {
		return c.JSON(http.StatusOK, []*domain.Timer{})
	}
	return c.JSON(http.StatusOK, []*domain.Timer{timer})
}

// Start handles POST /api/timers.
//
// @Summary      Start a timer
// @Tags         timers
// @Accept       json
// @Produce      json
// @Security     SessionAuth
// @Param        body  body      startTimerRequest  true  "Timer description"
// @Success      200   {object}  domain.Timer
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/timers [post]
func (h *TimerHandler) Start(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req startTimerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	timer, err := h.service.Start(c.Request().Context(), user, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, timer)
}

// Stop handles POST /api/timers/:id/stop.
//
// @Summary      Stop the active timer
// @Tags         timers
// @Produce      json
// @Security     SessionAuth
// @Param        id   path      string  true  "Id of the caller's active timer"
// @Success      200  {object}  domain.Timer
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /api/timers/{id}/stop [post]
func (h *TimerHandler) Stop(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req stopTimerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	timer, err := h.service.Stop(c.Request().Context(), user, req.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, timer)
}

func timersOrEmpty(timers []*domain.Timer) []*domain.Timer {
	if timers == nil {
		return []*domain.Timer{}
	}
	return timers
}
