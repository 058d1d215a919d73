package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/byrgyin/server-counter/docs"
	"github.com/byrgyin/server-counter/internal/api/handler"
	"github.com/byrgyin/server-counter/internal/api/middleware"
	"github.com/byrgyin/server-counter/internal/api/ws"
	"github.com/byrgyin/server-counter/internal/core/ports"
	"github.com/byrgyin/server-counter/internal/infrastructure/http/handlers"
	"github.com/byrgyin/server-counter/internal/pkg/metrics"
)

// Dependencies holds everything the router wires into handlers.
type Dependencies struct {
	Log            zerolog.Logger
	AuthService    ports.AuthService
	TimerService   ports.TimerService
	Resolver       ports.SessionResolver
	Readiness      *handlers.HealthDependenciesHandler
	AllowedOrigins []string
	EnableSwagger  bool

	// Registerer and Gatherer back the HTTP request metrics and /metrics.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  metrics.Namespace,
		Subsystem:  "http",
		Registerer: deps.Registerer,
	}))

	// --- Dependencies ---
	session := middleware.Session(deps.Resolver)
	authHandler := handler.NewAuthHandler(deps.AuthService)
	timerHandler := handler.NewTimerHandler(deps.TimerService)
	wsLog := deps.Log.With().Str("component", "ws").Logger()
	wsServer := ws.NewServer(ws.NewHandler(deps.AuthService, deps.TimerService, deps.Resolver, wsLog), deps.AllowedOrigins, wsLog)

	// --- Auth routes ---
	e.POST("/login", authHandler.Login)
	e.POST("/signup", authHandler.Signup)
	e.GET("/logout", authHandler.Logout, session)

	// --- Timer routes (session required) ---
	timers := e.Group("/api/timers", session, middleware.RequireUser())
	timers.GET("", timerHandler.List)
	timers.POST("", timerHandler.Start)
	timers.GET("/:id", timerHandler.Get)
	timers.POST("/:id/stop", timerHandler.Stop)

	// --- Duplex channel (session travels per frame) ---
	e.GET("/ws", wsServer.Handle)

	// --- Operational endpoints (no auth required) ---
	e.GET("/", handlers.Root)
	e.GET("/health", handlers.NewHealthHandler().Liveness) // liveness: is the process alive?
	e.GET("/health/ready", deps.Readiness.Readiness)       // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	if deps.EnableSwagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}
