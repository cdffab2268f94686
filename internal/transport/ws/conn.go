package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bancbannas/bulls-and-cows-server/internal/model"
)

// Conn wraps one websocket connection behind the model.Conn interface.
// Outbound events go through a buffered channel drained by a single write
// pump, so Send never blocks the serialized event path.
type Conn struct {
	id     string
	ws     *websocket.Conn
	send   chan model.Event
	done   chan struct{}
	once   sync.Once
	cfg    Config
	logger *slog.Logger
}

func newConn(id string, ws *websocket.Conn, cfg Config, logger *slog.Logger) *Conn {
	return &Conn{
		id:     id,
		ws:     ws,
		send:   make(chan model.Event, cfg.SendBuffer),
		done:   make(chan struct{}),
		cfg:    cfg,
		logger: logger.With(slog.String("conn_id", id)),
	}
}

// Ensure Conn implements the model interface
var _ model.Conn = (*Conn)(nil)

// ID returns the connection's unique identifier
func (c *Conn) ID() string {
	return c.id
}

// Send queues an event for delivery. A connection whose buffer is full is
// considered dead and closed; events to it are dropped.
func (c *Conn) Send(ev model.Event) {
	select {
	case c.send <- ev:
	case <-c.done:
	default:
		c.logger.Warn("send buffer full, closing connection")
		c.Close()
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with periodic pings. It owns all writes to the underlying socket.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			data, err := json.Marshal(ev)
			if err != nil {
				c.logger.Error("failed to marshal event",
					slog.String("type", string(ev.Type)),
					slog.String("error", err.Error()),
				)
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
