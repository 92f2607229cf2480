package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jortega/partidasync/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Ping period, must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size
	maxMessageSize = 64 * 1024

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// ErrSendBufferFull is returned when a client cannot keep up with its
// outbound event stream
var ErrSendBufferFull = errors.New("client send buffer full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect from arbitrary origins; identity is
		// established by the login event, not the origin.
		return true
	},
}

// Client is one live WebSocket connection
type Client struct {
	id     model.ConnectionID
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	router *Router
	hub    *Hub
	logger *slog.Logger
}

// ID returns the connection id
func (c *Client) ID() model.ConnectionID {
	return c.id
}

// Send queues a named event for delivery to this client. A full buffer is
// an error for the caller to swallow or act on, never a block.
func (c *Client) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrSendBufferFull
	default:
		return ErrSendBufferFull
	}
}

// shutdown signals the write pump to drain queued frames and close
func (c *Client) shutdown() {
	c.once.Do(func() {
		close(c.done)
	})
}

// ServeWS upgrades an HTTP request to a WebSocket connection and runs the
// client until disconnect.
func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, router *Router, logger *slog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed",
			slog.String("remote", r.RemoteAddr),
			slog.Any("error", err))
		return
	}

	id := model.ConnectionID(uuid.NewString())
	client := &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		router: router,
		hub:    hub,
		logger: logger.With(slog.String("connection", string(id))),
	}

	hub.Register(client)
	router.HandleConnect(client)

	go client.writePump()
	client.readPump()
}

// readPump reads inbound frames and dispatches them. One event is handled
// to completion before the next is read off this connection.
func (c *Client) readPump() {
	defer func() {
		c.router.HandleDisconnect(c)
		c.hub.Unregister(c.id)
		c.shutdown()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected websocket close", slog.Any("error", err))
			}
			return
		}
		c.router.Dispatch(context.Background(), c, message)
	}
}

// writePump serializes outbound frames and keepalive pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			// Drain whatever is already queued before closing
			for {
				select {
				case message := <-c.send:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = c.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}
