package rpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	closeGracePeriod    = time.Second
	defaultWriteTimeout = 10 * time.Second
)

// WebSocketDialer dials the backend with gorilla/websocket.
type WebSocketDialer struct {
	HandshakeTimeout time.Duration
	// WriteTimeout bounds each frame write; zero means 10s.
	WriteTimeout time.Duration
	// TLSConfig is used for secure endpoints; nil uses system defaults.
	TLSConfig *tls.Config
}

// Dial opens a WebSocket connection to endpoint.
func (d WebSocketDialer) Dial(ctx context.Context, endpoint Endpoint) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
		TLSClientConfig:  d.TLSConfig,
	}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = 5 * time.Second
	}
	ws, resp, err := dialer.DialContext(ctx, endpoint.URL(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: handshake status %s: %w", endpoint, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return NewWebSocketConn(ws, d.WriteTimeout), nil
}

// NewWebSocketConn adapts an established gorilla connection. A write that
// cannot finish within writeTimeout fails; zero uses the 10s default. The
// fake backend uses it for the server side of a connection.
func NewWebSocketConn(ws *websocket.Conn, writeTimeout time.Duration) Conn {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &wsConn{ws: ws, writeTimeout: writeTimeout}
}

type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
	closeErr     error
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) WriteFrame(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close never waits behind a writer. The close frame is skipped while a write
// is stuck; closing the socket then fails that write.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		if c.writeMu.TryLock() {
			_ = c.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeGracePeriod),
			)
			c.writeMu.Unlock()
		}
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
