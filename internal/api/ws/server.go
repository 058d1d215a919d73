package ws

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Server upgrades HTTP requests to WebSocket connections served by Handler.
type Server struct {
	handler  *Handler
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewServer accepts same-origin upgrades plus any origin in allowedOrigins.
func NewServer(handler *Handler, allowedOrigins []string, log zerolog.Logger) *Server {
	return &Server{
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		log: log,
	}
}

// Handle serves GET /ws. It returns once the connection is closed.
func (s *Server) Handle(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		s.log.Warn().Err(err).Str("remote_addr", c.RealIP()).Msg("websocket upgrade failed")
		return nil
	}

	newConn(conn, s.handler, s.log).run(c.Request().Context())
	return nil
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	extra := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			extra[strings.ToLower(o)] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := extra[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
