// Package deferred provides a single-assignment result container for
// asynchronous operations.
//
// A Deferred settles exactly once, either with a value or an error, and can be
// awaited any number of times from any goroutine afterwards. Waiting honours
// the caller's context so timeouts stay a caller concern; cancelling a wait
// never settles the Deferred itself.
package deferred

import (
	"context"
	"errors"
	"sync"
)

// ErrNilRejection replaces a nil error passed to Reject so a rejected Deferred
// is never observed as a success.
var ErrNilRejection = errors.New("deferred: rejected without error")

// Deferred holds the eventual outcome of an asynchronous operation.
type Deferred[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	value   T
	err     error
}

// New returns an unsettled Deferred.
func New[T any]() *Deferred[T] {
	return &Deferred[T]{done: make(chan struct{})}
}

// Resolved returns a Deferred already settled with value.
func Resolved[T any](value T) *Deferred[T] {
	d := New[T]()
	d.Resolve(value)
	return d
}

// Rejected returns a Deferred already settled with err.
func Rejected[T any](err error) *Deferred[T] {
	d := New[T]()
	d.Reject(err)
	return d
}

// Resolve settles the Deferred with value. It reports whether this call
// performed the settlement; later calls are no-ops.
func (d *Deferred[T]) Resolve(value T) bool {
	return d.settle(value, nil)
}

// Reject settles the Deferred with err. It reports whether this call
// performed the settlement; later calls are no-ops.
func (d *Deferred[T]) Reject(err error) bool {
	if err == nil {
		err = ErrNilRejection
	}
	var zero T
	return d.settle(zero, err)
}

func (d *Deferred[T]) settle(value T, err error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settled {
		return false
	}
	d.settled = true
	d.value = value
	d.err = err
	close(d.done)
	return true
}

// Settled reports whether Resolve or Reject has taken effect.
func (d *Deferred[T]) Settled() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Done is closed once the Deferred settles.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Await blocks until the Deferred settles or ctx ends. Every caller observes
// the same outcome.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-d.done:
		return d.value, d.err
	default:
	}
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the settled outcome without blocking. ok is false while the
// Deferred is still pending.
func (d *Deferred[T]) Result() (value T, err error, ok bool) {
	if !d.Settled() {
		return value, nil, false
	}
	return d.value, d.err, true
}
