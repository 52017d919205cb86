package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ErrSessionUnavailable is returned by Send when the session is closed
// or its outbound buffer is full. Either way the hub treats the peer
// as gone.
var ErrSessionUnavailable = errors.New("session unavailable")

// Conn adapts a gorilla WebSocket connection to the Session interface.
// Sends go through a bounded buffer drained by a single write pump, so
// a slow peer never blocks a broadcast; it just starts failing sends.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// NewConn wraps an upgraded WebSocket connection and starts its write
// pump.
func NewConn(ws *websocket.Conn, bufferSize int) *Conn {
	c := &Conn{
		ws:   ws,
		send: make(chan []byte, bufferSize),
	}
	go c.writePump()
	return c
}

// Send queues data for delivery. Fails fast when the session is closed
// or the buffer is full.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSessionUnavailable
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSessionUnavailable
	}
}

// Close shuts down the write pump. Safe to call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// CloseWithCode sends a close control frame before shutting down, used
// to reject connections to unknown conversations.
func (c *Conn) CloseWithCode(code int, reason string) {
	deadline := time.Now().Add(writeWait)
	c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	c.Close()
}

// ReadMessage reads the next inbound frame as raw bytes.
func (c *Conn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
