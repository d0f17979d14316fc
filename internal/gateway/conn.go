package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is one live socket as the hub sees it. The production implementation
// wraps a gorilla websocket; tests use in-memory fakes.
type Conn interface {
	ID() string
	Send(event string, payload any) error
	Close() error
}

type outboundFrame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// wsConn serializes writes to one websocket. gorilla connections allow a
// single concurrent writer, so every Send goes through the mutex.
type wsConn struct {
	id           string
	sock         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newWSConn(sock *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{
		id:           uuid.NewString(),
		sock:         sock,
		writeTimeout: writeTimeout,
	}
}

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("connection %s is closed", c.id)
	}
	if c.writeTimeout > 0 {
		_ = c.sock.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.sock.WriteJSON(outboundFrame{Event: event, Payload: payload})
}

// Ping sends a control ping. WriteControl is safe to call concurrently with
// Send, so it bypasses the write mutex.
func (c *wsConn) Ping() error {
	deadline := time.Now().Add(c.writeTimeout)
	return c.sock.WriteControl(websocket.PingMessage, nil, deadline)
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	deadline := time.Now().Add(time.Second)
	_ = c.sock.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.sock.Close()
}
