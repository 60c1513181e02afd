package rpc

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"vidshelf/internal/logging"
)

// idleConn accepts writes and blocks reads until closed.
type idleConn struct {
	once   sync.Once
	closed chan struct{}
}

func newIdleConn() *idleConn { return &idleConn{closed: make(chan struct{})} }

func (c *idleConn) ReadFrame() ([]byte, error) {
	<-c.closed
	return nil, io.EOF
}

func (c *idleConn) WriteFrame([]byte) error { return nil }

func (c *idleConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func TestResponseFromAbandonedConnectionIsDiscarded(t *testing.T) {
	session := NewSession(SessionOptions{
		Endpoint: Endpoint{Host: "127.0.0.1", Port: 8765},
		Dialer: DialerFunc(func(context.Context, Endpoint) (Conn, error) {
			return newIdleConn(), nil
		}),
		Logger: logging.NewNop(),
	})
	t.Cleanup(session.Reset)

	connect := func() uint64 {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := session.Connect(ctx).Await(ctx); err != nil {
			t.Fatalf("connect: %v", err)
		}
		session.mu.Lock()
		defer session.mu.Unlock()
		return session.generation
	}

	stale := connect()
	session.Reset()
	current := connect()

	pending, err := session.Send(Request{RequestID: 7, Name: "rename_video"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	ok := []byte(`{"message_type":"response","request_id":7,"type":"ok"}`)
	if err := session.handleFrame(stale, ok); err != nil {
		t.Fatalf("stale frame err = %v, want nil", err)
	}
	if pending.Settled() || session.Pending() != 1 {
		t.Fatalf("stale response settled a call on the new connection")
	}

	if err := session.handleFrame(current, ok); err != nil {
		t.Fatalf("current frame: %v", err)
	}
	if !pending.Settled() {
		t.Fatalf("response on the live connection did not settle the call")
	}
}
