package rpctest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"vidshelf/internal/rpc"
)

// ErrNoConnection is returned when the fake backend has no client to write to.
var ErrNoConnection = errors.New("rpctest: no client connected")

// Handler answers one method. A nil value produces an ok response, any other
// value a data response named after the method. A *rpc.RemoteError becomes an
// error response with its name and message; other errors are reported as
// InternalError.
type Handler func(args []json.RawMessage) (any, error)

// Server is a fake video-library backend speaking the wire protocol over
// WebSocket on a loopback httptest server.
type Server struct {
	httpServer *httptest.Server
	upgrader   websocket.Upgrader
	accepted   chan struct{}

	mu       sync.Mutex
	handlers map[string]Handler
	conns    map[rpc.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewServer starts a fake backend that is closed when the test ends.
func NewServer(tb testing.TB) *Server {
	tb.Helper()
	s := &Server{
		accepted: make(chan struct{}, 16),
		handlers: make(map[string]Handler),
		conns:    make(map[rpc.Conn]struct{}),
	}
	s.httpServer = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	tb.Cleanup(s.Close)
	return s
}

// Endpoint returns the endpoint clients should dial.
func (s *Server) Endpoint() rpc.Endpoint {
	u, err := url.Parse(s.httpServer.URL)
	if err != nil {
		panic(fmt.Sprintf("rpctest: parse server url: %v", err))
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		panic(fmt.Sprintf("rpctest: split server host: %v", err))
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		panic(fmt.Sprintf("rpctest: server port: %v", err))
	}
	return rpc.Endpoint{Host: host, Port: port, Path: "/"}
}

// Handle registers the handler for method name, replacing any previous one.
func (s *Server) Handle(name string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

// Connections returns the number of open client connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// WaitForConnection blocks until a client connects.
func (s *Server) WaitForConnection(tb testing.TB) {
	tb.Helper()
	select {
	case <-s.accepted:
	case <-time.After(2 * time.Second):
		tb.Fatalf("timed out waiting for client connection")
	}
}

// Notify sends a notification frame to every connected client.
func (s *Server) Notify(name string, parameters any) error {
	payload, err := json.Marshal(map[string]any{
		"message_type": "notification",
		"name":         name,
		"parameters":   parameters,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return s.SendRaw(payload)
}

// SendRaw writes frame verbatim to every connected client.
func (s *Server) SendRaw(frame []byte) error {
	s.mu.Lock()
	conns := make([]rpc.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if len(conns) == 0 {
		return ErrNoConnection
	}
	var errs []error
	for _, c := range conns {
		if err := c.WriteFrame(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DropConnections closes every client connection from the backend side.
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := make([]rpc.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

// Close drops all clients and stops the server.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.DropConnections()
	s.httpServer.Close()
	s.wg.Wait()
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := rpc.NewWebSocketConn(ws, 0)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
		s.wg.Done()
	}()

	select {
	case s.accepted <- struct{}{}:
	default:
	}
	s.serveConn(conn)
}

type inboundRequest struct {
	RequestID int64             `json:"request_id"`
	Name      string            `json:"name"`
	Args      []json.RawMessage `json:"args"`
}

func (s *Server) serveConn(conn rpc.Conn) {
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			return
		}
		var req inboundRequest
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		payload, err := json.Marshal(s.respond(req))
		if err != nil {
			continue
		}
		if err := conn.WriteFrame(payload); err != nil {
			return
		}
	}
}

func (s *Server) respond(req inboundRequest) map[string]any {
	s.mu.Lock()
	handler := s.handlers[req.Name]
	s.mu.Unlock()

	if handler == nil {
		return errorFrame(req.RequestID, "UnknownMethod", "no handler for "+req.Name)
	}
	value, err := handler(req.Args)
	if err != nil {
		var remote *rpc.RemoteError
		if errors.As(err, &remote) {
			return errorFrame(req.RequestID, remote.Name, remote.Message)
		}
		return errorFrame(req.RequestID, "InternalError", err.Error())
	}
	if value == nil {
		return map[string]any{
			"message_type": "response",
			"request_id":   req.RequestID,
			"type":         "ok",
		}
	}
	return map[string]any{
		"message_type": "response",
		"request_id":   req.RequestID,
		"type":         "data",
		"data_type":    req.Name,
		"data":         value,
	}
}

func errorFrame(id int64, errorType, message string) map[string]any {
	return map[string]any{
		"message_type": "response",
		"request_id":   id,
		"type":         "error",
		"error_type":   errorType,
		"message":      message,
	}
}
