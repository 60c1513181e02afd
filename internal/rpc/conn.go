package rpc

import (
	"context"
	"net"
	"net/url"
	"strconv"
)

// Endpoint identifies the backend. It is fixed for the lifetime of a Session.
type Endpoint struct {
	Host   string
	Port   int
	Secure bool
	Path   string
}

// URL renders the WebSocket URL for the endpoint.
func (e Endpoint) URL() string {
	scheme := "ws"
	if e.Secure {
		scheme = "wss"
	}
	path := e.Path
	if path == "" {
		path = "/"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(e.Host, strconv.Itoa(e.Port)),
		Path:   path,
	}
	return u.String()
}

func (e Endpoint) String() string {
	return e.URL()
}

// Conn is one open, ordered, bidirectional frame stream.
type Conn interface {
	// ReadFrame blocks for the next inbound frame. Any error ends the connection.
	ReadFrame() ([]byte, error)
	// WriteFrame transmits one frame. Safe for concurrent use.
	WriteFrame(data []byte) error
	Close() error
}

// Dialer opens connections to an endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint Endpoint) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, endpoint Endpoint) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, endpoint Endpoint) (Conn, error) {
	return f(ctx, endpoint)
}
