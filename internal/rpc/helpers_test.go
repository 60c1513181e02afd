package rpc_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"vidshelf/internal/deferred"
	"vidshelf/internal/logging"
	"vidshelf/internal/rpc"
	"vidshelf/internal/rpc/rpctest"
)

const testTimeout = 2 * time.Second

var testEndpoint = rpc.Endpoint{Host: "127.0.0.1", Port: 8765, Path: "/"}

func newTestSession(t *testing.T) (*rpc.Session, *rpctest.Dialer) {
	t.Helper()
	dialer := rpctest.NewDialer()
	session := rpc.NewSession(rpc.SessionOptions{
		Endpoint: testEndpoint,
		Dialer:   dialer,
		Logger:   logging.NewNop(),
	})
	t.Cleanup(session.Reset)
	return session, dialer
}

// connectSession connects session and returns the backend end of its connection.
func connectSession(t *testing.T, session *rpc.Session, dialer *rpctest.Dialer) rpc.Conn {
	t.Helper()
	if _, err := await(t, session.Connect(context.Background())); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return dialer.NextPeer(t)
}

func await[T any](t *testing.T, d *deferred.Deferred[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	v, err := d.Await(ctx)
	if errors.Is(err, context.DeadlineExceeded) && !d.Settled() {
		t.Fatalf("timed out waiting for settlement")
	}
	return v, err
}

// readRequest reads the next frame the session wrote to peer.
func readRequest(t *testing.T, peer rpc.Conn) map[string]json.RawMessage {
	t.Helper()
	data, err := peer.ReadFrame()
	if err != nil {
		t.Fatalf("peer read: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("decode request %s: %v", data, err)
	}
	return fields
}

func writeFrame(t *testing.T, peer rpc.Conn, frame string) {
	t.Helper()
	if err := peer.WriteFrame([]byte(frame)); err != nil {
		t.Fatalf("peer write: %v", err)
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func timeAfter() <-chan time.Time {
	return time.After(testTimeout)
}
