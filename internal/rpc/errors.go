package rpc

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned synchronously by Send when the session is not CONNECTED.
	ErrNotConnected = errors.New("rpc: not connected")
	// ErrDuplicateRequestID is returned synchronously by Send when the id is already in flight.
	ErrDuplicateRequestID = errors.New("rpc: duplicate request id")
	// ErrDisconnected rejects calls that were pending when the connection went away.
	ErrDisconnected = errors.New("rpc: disconnected")
	// ErrMalformedFrame marks frames that are dropped without disturbing the session.
	ErrMalformedFrame = errors.New("rpc: malformed frame")
	// ErrUnknownMessageType marks frames whose message_type is neither response nor notification.
	ErrUnknownMessageType = errors.New("rpc: unknown message type")
	// ErrProtocol is matched by every *ProtocolError.
	ErrProtocol = errors.New("rpc: protocol violation")
)

// ProtocolError reports a frame that breaks the backend contract. These point
// at a backend bug rather than line noise.
type ProtocolError struct {
	Reason    string
	RequestID int64
	HasID     bool
}

func (e *ProtocolError) Error() string {
	if e.HasID {
		return fmt.Sprintf("rpc: protocol violation (request %d): %s", e.RequestID, e.Reason)
	}
	return "rpc: protocol violation: " + e.Reason
}

// Is lets errors.Is(err, ErrProtocol) match any ProtocolError.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

func protocolErrorf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// RemoteError is a business failure reported by the backend through an error response.
type RemoteError struct {
	// Name is the backend's error_type, for example "NotFound".
	Name    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

// TransportError wraps a failure of the physical connection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
