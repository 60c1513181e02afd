package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Client issues calls over a Session with generated correlation ids.
type Client struct {
	session *Session
	nextID  atomic.Int64
}

// NewClient wraps session.
func NewClient(session *Session) *Client {
	return &Client{session: session}
}

// Dial connects a new session and waits until it is established or ctx ends.
func Dial(ctx context.Context, opts SessionOptions) (*Client, error) {
	session := NewSession(opts)
	if _, err := session.Connect(ctx).Await(ctx); err != nil {
		session.Reset()
		return nil, err
	}
	return NewClient(session), nil
}

// Session returns the underlying session.
func (c *Client) Session() *Session {
	return c.session
}

// Close drops the connection and rejects anything still pending.
func (c *Client) Close() {
	c.session.Reset()
}

// Call invokes the remote method name and waits for its result. An ok
// response yields a nil payload. Backend failures are returned as
// *RemoteError. ctx bounds only the wait; the call stays pending until its
// response arrives or the session resets.
func (c *Client) Call(ctx context.Context, name string, args ...any) (json.RawMessage, error) {
	req := Request{RequestID: c.nextID.Add(1), Name: name, Args: args}
	result, err := c.session.Send(req)
	if err != nil {
		return nil, err
	}
	return result.Await(ctx)
}

// CallInto is Call followed by decoding a data payload into out.
func (c *Client) CallInto(ctx context.Context, out any, name string, args ...any) error {
	payload, err := c.Call(ctx, name, args...)
	if err != nil {
		return err
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s result: %w", name, err)
	}
	return nil
}

// OnNotification subscribes fn. An empty name registers a general listener;
// otherwise fn becomes the name-keyed manager for name. The returned func
// removes the subscription.
func (c *Client) OnNotification(name string, fn func(Notification)) func() {
	router := c.session.Router()
	if name == "" {
		sub := router.Register(fn)
		return func() { router.Unregister(sub) }
	}
	router.SetNotificationManager(name, func(params json.RawMessage) {
		fn(Notification{Name: name, Parameters: params})
	})
	return func() { router.SetNotificationManager(name, nil) }
}
