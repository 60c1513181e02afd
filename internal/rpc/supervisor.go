package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"vidshelf/internal/logging"
)

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	Session SessionOptions
	Backoff BackoffConfig
	// MaxAttempts bounds consecutive failed connection attempts; zero retries forever.
	MaxAttempts int
	// OnOpen runs after every successful (re)connect.
	OnOpen func(*Session)
	// OnClose runs after every unexpected disconnect, before the retry delay.
	OnClose func(error)
	Logger  *slog.Logger
}

// Supervisor keeps one Session connected, reconnecting with backoff after
// failed attempts and dropped connections. The session and its Router are
// created once, so subscriptions survive reconnects.
type Supervisor struct {
	opts    SupervisorOptions
	logger  *slog.Logger
	session *Session
	closed  chan error
	rng     *rand.Rand
}

// NewSupervisor constructs the supervised session without connecting it.
func NewSupervisor(opts SupervisorOptions) *Supervisor {
	if opts.Session.Logger == nil {
		opts.Session.Logger = opts.Logger
	}
	if opts.Session.Router == nil {
		opts.Session.Router = NewRouter(opts.Session.Logger)
	}
	s := &Supervisor{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "supervisor"),
		closed: make(chan error, 1),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.session = NewSession(opts.Session)
	s.session.SetCloseHandler(func(err error) {
		select {
		case s.closed <- err:
		default:
		}
	})
	return s
}

// Session returns the supervised session.
func (s *Supervisor) Session() *Session {
	return s.session
}

// Run connects and keeps the session connected until ctx ends, which resets
// the session and returns nil. It returns an error once MaxAttempts
// consecutive attempts have failed.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.session.Reset()

	failures := 0
	for {
		outcome := s.connect(ctx)

		var err error
		select {
		case <-ctx.Done():
			return nil
		case err = <-outcome:
		}

		if err != nil {
			failures++
			if s.opts.MaxAttempts > 0 && failures >= s.opts.MaxAttempts {
				return fmt.Errorf("backend unreachable after %d attempts: %w", failures, err)
			}
			delay := NextBackoffDelay(s.opts.Backoff, failures, s.rng)
			s.logger.Info("retrying backend connection",
				logging.Int("attempt", failures),
				logging.Duration("delay", delay))
			if !sleepContext(ctx, delay) {
				return nil
			}
			continue
		}

		failures = 0
		if s.opts.OnOpen != nil {
			s.opts.OnOpen(s.session)
		}

		select {
		case <-ctx.Done():
			return nil
		case cause := <-s.closed:
			if s.opts.OnClose != nil {
				s.opts.OnClose(cause)
			}
			if !sleepContext(ctx, NextBackoffDelay(s.opts.Backoff, 1, s.rng)) {
				return nil
			}
		}
	}
}

// connect starts or adopts a connection attempt and reports its outcome.
// ConnectOrReuse fires no callback for a session someone else already
// connected or is connecting, so that case waits on the session's own
// connect awaitable.
func (s *Supervisor) connect(ctx context.Context) <-chan error {
	outcome := make(chan error, 1)
	if s.session.Status() != StatusNotConnected {
		established := s.session.Connect(ctx)
		go func() {
			_, err := established.Await(context.Background())
			outcome <- err
		}()
		return outcome
	}
	ConnectOrReuse(ctx, s.session, s.opts.Session, Callbacks{
		OnOpenSuccess: func() { outcome <- nil },
		OnOpenError:   func(err error) { outcome <- err },
	})
	return outcome
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
