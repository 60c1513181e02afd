package rpc_test

import (
	"context"
	"errors"
	"testing"

	"vidshelf/internal/logging"
	"vidshelf/internal/rpc"
	"vidshelf/internal/rpc/rpctest"
)

func bootstrapOptions(dialer rpc.Dialer) rpc.SessionOptions {
	return rpc.SessionOptions{Endpoint: testEndpoint, Dialer: dialer, Logger: logging.NewNop()}
}

func TestConnectOrReuseCreatesSession(t *testing.T) {
	dialer := rpctest.NewDialer()
	opened := make(chan struct{}, 1)
	notified := make(chan rpc.Notification, 1)
	closed := make(chan error, 1)

	session := rpc.ConnectOrReuse(context.Background(), nil, bootstrapOptions(dialer), rpc.Callbacks{
		OnOpenSuccess:  func() { opened <- struct{}{} },
		OnOpenError:    func(err error) { t.Errorf("unexpected open error: %v", err) },
		OnClose:        func(err error) { closed <- err },
		OnNotification: func(n rpc.Notification) { notified <- n },
	})
	t.Cleanup(session.Reset)

	select {
	case <-opened:
	case <-timeAfter():
		t.Fatalf("OnOpenSuccess not called")
	}
	peer := dialer.NextPeer(t)
	writeFrame(t, peer, `{"message_type":"notification","name":"library_scanned","parameters":null}`)
	select {
	case n := <-notified:
		if n.Name != "library_scanned" {
			t.Fatalf("notification = %+v", n)
		}
	case <-timeAfter():
		t.Fatalf("notification callback not wired")
	}

	_ = peer.Close()
	select {
	case <-closed:
	case <-timeAfter():
		t.Fatalf("close callback not wired")
	}
}

func TestConnectOrReuseKeepsLiveSession(t *testing.T) {
	session, dialer := newTestSession(t)
	connectSession(t, session, dialer)

	got := rpc.ConnectOrReuse(context.Background(), session, bootstrapOptions(dialer), rpc.Callbacks{
		OnOpenSuccess: func() { t.Errorf("open callback fired for a live session") },
	})
	if got != session {
		t.Fatalf("live session was replaced")
	}
	if dialer.Attempts() != 1 {
		t.Fatalf("dial attempts = %d, want 1", dialer.Attempts())
	}
	if session.Status() != rpc.StatusConnected {
		t.Fatalf("status = %s", session.Status())
	}
}

func TestConnectOrReuseKeepsConnectingSession(t *testing.T) {
	session, dialer := newTestSession(t)
	release := dialer.Hold()
	defer release()
	session.Connect(context.Background())

	got := rpc.ConnectOrReuse(context.Background(), session, bootstrapOptions(dialer), rpc.Callbacks{})
	if got != session || session.Status() != rpc.StatusConnecting {
		t.Fatalf("connecting session disturbed: status %s", session.Status())
	}
}

func TestConnectOrReuseReconnectsClosedSession(t *testing.T) {
	session, dialer := newTestSession(t)
	peer := connectSession(t, session, dialer)
	_ = peer.Close()
	eventually(t, "disconnect", func() bool { return session.Status() == rpc.StatusNotConnected })

	opened := make(chan struct{}, 1)
	got := rpc.ConnectOrReuse(context.Background(), session, bootstrapOptions(dialer), rpc.Callbacks{
		OnOpenSuccess: func() { opened <- struct{}{} },
	})
	if got != session {
		t.Fatalf("closed session should be reused")
	}
	select {
	case <-opened:
	case <-timeAfter():
		t.Fatalf("reconnect not reported")
	}
	if dialer.Attempts() != 2 {
		t.Fatalf("dial attempts = %d, want 2", dialer.Attempts())
	}
}

func TestConnectOrReuseReportsOpenError(t *testing.T) {
	dialer := rpctest.NewDialer()
	dialer.FailNext(1, errors.New("no route to host"))
	failed := make(chan error, 1)

	session := rpc.ConnectOrReuse(context.Background(), nil, bootstrapOptions(dialer), rpc.Callbacks{
		OnOpenSuccess: func() { t.Errorf("unexpected open success") },
		OnOpenError:   func(err error) { failed <- err },
	})
	t.Cleanup(session.Reset)

	select {
	case err := <-failed:
		var terr *rpc.TransportError
		if !errors.As(err, &terr) {
			t.Fatalf("open error = %v, want TransportError", err)
		}
	case <-timeAfter():
		t.Fatalf("OnOpenError not called")
	}
}
