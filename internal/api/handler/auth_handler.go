package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/byrgyin/server-counter/internal/api/middleware"
	"github.com/byrgyin/server-counter/internal/core/domain"
	"github.com/byrgyin/server-counter/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login authenticates a user and opens a session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Header       200   {string}  SessionId  "Session token"
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, _, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return writeSession(c, session)
}

// Signup creates a new user account and opens a session.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "New account credentials"
// @Success      200   {object}  sessionResponse
// @Header       200   {string}  SessionId  "Session token"
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req credentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, _, err := h.authService.Signup(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return writeSession(c, session)
}

// Logout revokes the caller's session. Anonymous callers are redirected to
// the root page.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     SessionAuth
// @Success      200  {object}  map[string]string
// @Success      302
// @Failure      503  {object}  errorResponse
// @Router       /logout [get]
func (h *AuthHandler) Logout(c echo.Context) error {
	if middleware.CurrentUser(c) == nil {
		return c.Redirect(http.StatusFound, "/")
	}

	if err := h.authService.Logout(c.Request().Context(), middleware.SessionToken(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, struct{}{})
}

func writeSession(c echo.Context, session *domain.Session) error {
	c.Response().Header().Set(middleware.SessionHeader, session.Token)
	return c.JSON(http.StatusOK, sessionResponse{SessionID: session.Token})
}
