package rpctest

import (
	"context"
	"sync"
	"testing"
	"time"

	"vidshelf/internal/rpc"
)

// Dialer is an rpc.Dialer backed by Pipe. It counts attempts, can fail or
// hold dials on demand, and hands the backend end of every successful dial
// to the test through NextPeer.
type Dialer struct {
	mu       sync.Mutex
	attempts int
	failures int
	failErr  error
	gate     chan struct{}
	peers    chan rpc.Conn
}

// NewDialer constructs a Dialer whose dials succeed immediately.
func NewDialer() *Dialer {
	return &Dialer{peers: make(chan rpc.Conn, 16)}
}

// Dial implements rpc.Dialer.
func (d *Dialer) Dial(ctx context.Context, _ rpc.Endpoint) (rpc.Conn, error) {
	d.mu.Lock()
	d.attempts++
	gate := d.gate
	var err error
	if d.failures != 0 {
		err = d.failErr
		if d.failures > 0 {
			d.failures--
		}
	}
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	client, backend := Pipe()
	d.peers <- backend
	return client, nil
}

// Attempts returns how many dials have started.
func (d *Dialer) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

// FailNext makes the next n dials return err. A negative n fails every dial
// until FailNext(0, nil) is called.
func (d *Dialer) FailNext(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = n
	d.failErr = err
}

// Hold blocks dials until the returned release func is called.
func (d *Dialer) Hold() (release func()) {
	gate := make(chan struct{})
	d.mu.Lock()
	d.gate = gate
	d.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			if d.gate == gate {
				d.gate = nil
			}
			d.mu.Unlock()
			close(gate)
		})
	}
}

// NextPeer returns the backend end of the next successful dial.
func (d *Dialer) NextPeer(tb testing.TB) rpc.Conn {
	tb.Helper()
	select {
	case peer := <-d.peers:
		return peer
	case <-time.After(2 * time.Second):
		tb.Fatalf("timed out waiting for dial")
		return nil
	}
}

var _ rpc.Dialer = (*Dialer)(nil)
