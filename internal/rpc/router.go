package rpc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"vidshelf/internal/logging"
)

// Subscription identifies a general listener registered with a Router.
type Subscription uint64

type listener struct {
	id Subscription
	fn func(Notification)
}

// Router fans inbound notifications out to listeners. A name-keyed manager,
// when installed for a notification's name, receives that notification
// instead of the general listeners.
type Router struct {
	logger *slog.Logger

	mu        sync.RWMutex
	next      Subscription
	listeners []listener
	managers  map[string]func(json.RawMessage)
}

// NewRouter constructs an empty Router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		logger:   logging.NewComponentLogger(logger, "router"),
		managers: make(map[string]func(json.RawMessage)),
	}
}

// Register adds a general listener. Listeners run in registration order.
func (r *Router) Register(fn func(Notification)) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.listeners = append(r.listeners, listener{id: r.next, fn: fn})
	return r.next
}

// Unregister removes a general listener. Unknown or already removed
// subscriptions are ignored.
func (r *Router) Unregister(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.listeners {
		if l.id == sub {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			return
		}
	}
}

// SetNotificationManager installs the single name-keyed listener for name,
// replacing any previous one. A nil fn removes it.
func (r *Router) SetNotificationManager(name string, fn func(json.RawMessage)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		delete(r.managers, name)
		return
	}
	r.managers[name] = fn
}

// Listeners returns the number of general listeners.
func (r *Router) Listeners() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Dispatch delivers n synchronously. A panicking listener is logged and does
// not stop delivery to the ones after it.
func (r *Router) Dispatch(n Notification) {
	r.mu.RLock()
	manager := r.managers[n.Name]
	var targets []listener
	if manager == nil {
		targets = append(targets, r.listeners...)
	}
	r.mu.RUnlock()

	if manager != nil {
		r.invoke(n.Name, func() { manager(n.Parameters) })
		return
	}
	for _, l := range targets {
		r.invoke(n.Name, func() { l.fn(n) })
	}
}

func (r *Router) invoke(name string, call func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.ErrorWithContext(r.logger, "notification listener panicked", "rpc_listener_panic",
				logging.String(logging.FieldNotification, name),
				logging.String("panic", fmt.Sprint(rec)),
				logging.String(logging.FieldErrorHint, "fix the listener; later listeners still received the notification"))
		}
	}()
	call()
}
