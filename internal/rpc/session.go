package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidshelf/internal/deferred"
	"vidshelf/internal/logging"
)

// Status is the lifecycle state of a Session.
type Status int32

const (
	StatusNotConnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusNotConnected:
		return "NOT_CONNECTED"
	case StatusConnecting:
		return "CONNECTING"
	case StatusConnected:
		return "CONNECTED"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Endpoint Endpoint
	// Dialer defaults to a WebSocketDialer.
	Dialer Dialer
	// Router defaults to a fresh Router. Pass one in to keep subscriptions
	// across sessions.
	Router *Router
	Logger *slog.Logger
}

type pendingCall struct {
	request Request
	result  *deferred.Deferred[json.RawMessage]
	sentAt  time.Time
}

// Session is the transport session for one backend endpoint. It is reusable
// after disconnection.
type Session struct {
	id       string
	endpoint Endpoint
	dialer   Dialer
	router   *Router
	logger   *slog.Logger

	mu          sync.Mutex
	status      Status
	conn        Conn
	generation  uint64
	ledger      map[int64]*pendingCall
	established *deferred.Deferred[struct{}]
	onClose     func(error)
}

// NewSession constructs a NOT_CONNECTED session.
func NewSession(opts SessionOptions) *Session {
	id := uuid.NewString()
	logger := logging.NewComponentLogger(opts.Logger, "rpc").With(
		logging.String(logging.FieldSessionID, id),
		logging.String(logging.FieldEndpoint, opts.Endpoint.URL()),
	)
	dialer := opts.Dialer
	if dialer == nil {
		dialer = WebSocketDialer{}
	}
	router := opts.Router
	if router == nil {
		router = NewRouter(opts.Logger)
	}
	return &Session{
		id:          id,
		endpoint:    opts.Endpoint,
		dialer:      dialer,
		router:      router,
		logger:      logger,
		status:      StatusNotConnected,
		ledger:      make(map[int64]*pendingCall),
		established: deferred.New[struct{}](),
	}
}

// ID returns the session identifier used in logs and the journal.
func (s *Session) ID() string { return s.id }

// Endpoint returns the endpoint fixed at construction.
func (s *Session) Endpoint() Endpoint { return s.endpoint }

// Router returns the notification router fed by this session.
func (s *Session) Router() *Router { return s.router }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Pending returns the number of in-flight calls.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger)
}

// SetCloseHandler installs the callback run after the connection drops
// unexpectedly. Reset does not invoke it.
func (s *Session) SetCloseHandler(fn func(error)) {
	s.mu.Lock()
	s.onClose = fn
	s.mu.Unlock()
}

// SetNotificationManager installs or, with a nil fn, removes the name-keyed
// listener for name.
func (s *Session) SetNotificationManager(name string, fn func(json.RawMessage)) {
	s.router.SetNotificationManager(name, fn)
}

// Connect starts connecting when the session is NOT_CONNECTED and returns the
// awaitable settled once the connection is established or fails. While
// CONNECTING or CONNECTED it returns the existing awaitable without dialing.
func (s *Session) Connect(ctx context.Context) *deferred.Deferred[struct{}] {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusNotConnected {
		return s.established
	}
	if s.established.Settled() {
		s.established = deferred.New[struct{}]()
	}
	s.status = StatusConnecting
	s.generation++
	s.logger.Debug("connecting to backend")
	go s.dial(ctx, s.generation, s.established)
	return s.established
}

func (s *Session) dial(ctx context.Context, generation uint64, established *deferred.Deferred[struct{}]) {
	conn, err := s.dialer.Dial(ctx, s.endpoint)

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		s.logger.Debug("discarded connection abandoned by reset")
		return
	}
	if err != nil {
		s.status = StatusNotConnected
		established.Reject(&TransportError{Op: "connect", Err: err})
		s.mu.Unlock()
		logging.WarnWithContext(s.logger, "backend connection failed", "rpc_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "calls cannot be sent until a connection is established"),
			logging.String(logging.FieldErrorHint, "verify the backend is running and backend.host/backend.port are correct"))
		return
	}
	s.conn = conn
	s.status = StatusConnected
	established.Resolve(struct{}{})
	s.mu.Unlock()

	s.logger.Info("backend connected", logging.String(logging.FieldEventType, "rpc_connected"))
	go s.readLoop(generation, conn)
}

func (s *Session) readLoop(generation uint64, conn Conn) {
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			s.connectionLost(generation, err)
			return
		}
		if !s.isCurrent(generation) {
			return
		}
		if err := s.handleFrame(generation, data); err != nil {
			logging.ErrorWithContext(s.logger, "backend violated the wire protocol", "rpc_protocol_violation",
				logging.Error(err),
				logging.Payload("frame", data),
				logging.String(logging.FieldErrorHint, "report the frame to the backend maintainers"))
		}
	}
}

func (s *Session) isCurrent(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == generation
}

// connectionLost handles an unexpected close. It drains the ledger so no call
// outlives the connection it was sent on.
func (s *Session) connectionLost(generation uint64, cause error) {
	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.conn = nil
	s.status = StatusNotConnected
	failed := s.drainLocked(fmt.Errorf("%w: %v", ErrDisconnected, cause))
	onClose := s.onClose
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	logging.WarnWithContext(s.logger, "backend connection lost", "rpc_connection_lost",
		logging.Error(cause),
		logging.Int("failed_calls", failed),
		logging.String(logging.FieldImpact, "pending calls were rejected"),
		logging.String(logging.FieldErrorHint, "reconnect once the backend is reachable"))
	if onClose != nil {
		onClose(cause)
	}
}

// Reset closes the connection if any, rejects every pending call and an
// unsettled connect awaitable with ErrDisconnected, and returns the session
// to NOT_CONNECTED with a fresh connect awaitable.
func (s *Session) Reset() {
	s.mu.Lock()
	s.generation++
	conn := s.conn
	s.conn = nil
	previous := s.status
	s.status = StatusNotConnected
	failed := s.drainLocked(ErrDisconnected)
	s.established.Reject(ErrDisconnected)
	s.established = deferred.New[struct{}]()
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.logger.Debug("session reset",
		logging.String("previous_status", previous.String()),
		logging.Int("failed_calls", failed))
}

func (s *Session) drainLocked(cause error) int {
	failed := len(s.ledger)
	for id, call := range s.ledger {
		call.result.Reject(cause)
		delete(s.ledger, id)
	}
	return failed
}

// Send transmits req and returns the awaitable for its response. It fails
// synchronously only when the session is not CONNECTED or req.RequestID is
// already in flight; a failed write rejects the returned awaitable instead.
func (s *Session) Send(req Request) (*deferred.Deferred[json.RawMessage], error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request %s: %w", req.Name, err)
	}

	s.mu.Lock()
	if s.status != StatusConnected {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	if _, exists := s.ledger[req.RequestID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrDuplicateRequestID, req.RequestID)
	}
	result := deferred.New[json.RawMessage]()
	s.ledger[req.RequestID] = &pendingCall{request: req, result: result, sentAt: time.Now()}
	conn := s.conn
	s.mu.Unlock()

	if err := conn.WriteFrame(payload); err != nil {
		s.mu.Lock()
		if call, ok := s.ledger[req.RequestID]; ok && call.result == result {
			delete(s.ledger, req.RequestID)
		}
		s.mu.Unlock()
		result.Reject(&TransportError{Op: "send " + req.Name, Err: err})
		return result, nil
	}

	s.logger.Debug("request sent",
		logging.Int64(logging.FieldRequestID, req.RequestID),
		logging.String(logging.FieldMethod, req.Name))
	return result, nil
}

// HandleFrame processes one inbound frame. Malformed frames and unknown
// message types are logged and dropped. A frame that breaks the backend
// contract, including a response for an id not in the ledger, returns a
// *ProtocolError.
func (s *Session) HandleFrame(data []byte) error {
	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()
	return s.handleFrame(generation, data)
}

// handleFrame processes a frame read from the connection of generation.
// Responses from a connection abandoned by Reset are discarded.
func (s *Session) handleFrame(generation uint64, data []byte) error {
	frame, err := ParseFrame(data)
	if err != nil {
		if errors.Is(err, ErrProtocol) {
			return err
		}
		logging.WarnWithContext(s.logger, "dropped inbound frame", "rpc_frame_dropped",
			logging.Error(err),
			logging.Payload("frame", data),
			logging.String(logging.FieldImpact, "frame ignored, session continues"))
		return nil
	}

	switch f := frame.(type) {
	case *Response:
		return s.settle(generation, f)
	case *Notification:
		s.logger.Debug("notification received", logging.String(logging.FieldNotification, f.Name))
		s.router.Dispatch(*f)
	}
	return nil
}

func (s *Session) settle(generation uint64, resp *Response) error {
	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		s.logger.Debug("discarded response from abandoned connection",
			logging.Int64(logging.FieldRequestID, resp.RequestID))
		return nil
	}
	call, ok := s.ledger[resp.RequestID]
	if ok {
		delete(s.ledger, resp.RequestID)
	}
	s.mu.Unlock()

	if !ok {
		return withID(protocolErrorf("response does not match any pending request"), resp.RequestID)
	}

	attrs := []logging.Attr{
		logging.Int64(logging.FieldRequestID, resp.RequestID),
		logging.String(logging.FieldMethod, call.request.Name),
		logging.Duration("elapsed", time.Since(call.sentAt)),
	}
	switch r := resp.Result.(type) {
	case OK:
		call.result.Resolve(nil)
	case Data:
		if r.Name != call.request.Name {
			perr := withID(protocolErrorf("data_type %q does not match request name %q", r.Name, call.request.Name), resp.RequestID)
			call.result.Reject(perr)
			return perr
		}
		call.result.Resolve(r.Payload)
	case Failure:
		remote := r.Err()
		call.result.Reject(remote)
		attrs = append(attrs, logging.String("error_type", remote.Name))
	}
	s.logger.Debug("request settled", logging.Args(attrs...)...)
	return nil
}
