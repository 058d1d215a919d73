package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/byrgyin/server-counter/internal/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

// conn is one client connection. Frames are handled one at a time in the
// read loop; replies go through send to the single writer goroutine.
type conn struct {
	id      string
	ws      *websocket.Conn
	handler *Handler
	send    chan []byte
	closed  chan struct{}
	log     zerolog.Logger
}

func newConn(ws *websocket.Conn, handler *Handler, log zerolog.Logger) *conn {
	id := uuid.NewString()
	return &conn{
		id:      id,
		ws:      ws,
		handler: handler,
		send:    make(chan []byte, sendBuffer),
		closed:  make(chan struct{}),
		log:     log.With().Str("conn_id", id).Logger(),
	}
}

// run blocks until the connection ends.
func (c *conn) run(ctx context.Context) {
	metrics.WSConnectionsActive.Inc()
	defer metrics.WSConnectionsActive.Dec()
	c.log.Debug().Msg("websocket connected")

	go c.writePump()
	c.readPump(ctx)

	close(c.send)
	<-c.closed
	c.log.Debug().Msg("websocket disconnected")
}

func (c *conn) readPump(ctx context.Context) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		reply := c.handler.Dispatch(ctx, raw)
		out, err := json.Marshal(reply)
		if err != nil {
			c.log.Error().Err(err).Str("type", reply.Type).Msg("encode reply")
			return
		}

		select {
		case c.send <- out:
		case <-c.closed:
			return
		}
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		close(c.closed)
	}()

	for {
		select {
		case out, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, out); err != nil {
				c.log.Debug().Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
