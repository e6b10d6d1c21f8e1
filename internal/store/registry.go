package store

import (
	"log/slog"
	"sync"
)

// Subscriber receives the events of every mutating store call.
//
// OnEvents is invoked synchronously once per call with the full batch of
// that call's events, after the mutation has been applied. Implementations
// must not call back into the registry from OnEvents.
type Subscriber interface {
	Name() string
	OnEvents(events []Event)
}

// SubscriberHandle identifies a registration. The zero handle is never issued.
type SubscriberHandle uint64

type registration struct {
	handle SubscriberHandle
	sub    Subscriber
}

// Registry is the explicit list of subscribers for one or more stores.
//
// A Registry is owned by the caller that constructs it and is passed to the
// stores it should observe; nothing is registered process-wide. Events
// carry their StoreID so a subscriber shared between stores can tell them
// apart.
//
// Thread-safety: safe for concurrent use. Notify takes a snapshot of the
// subscriber list under the read lock and invokes subscribers outside it.
type Registry struct {
	mu     sync.RWMutex
	next   SubscriberHandle
	subs   []registration
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// SetLogger replaces the registry's logger.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds a subscriber and returns its handle.
// The subscriber sees events from calls that start after Register returns.
func (r *Registry) Register(sub Subscriber) SubscriberHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	r.subs = append(r.subs, registration{handle: r.next, sub: sub})
	r.logger.Debug("subscriber registered", "name", sub.Name(), "handle", r.next)
	return r.next
}

// Unregister removes the subscriber with the given handle.
// Returns false if the handle is unknown.
func (r *Registry) Unregister(h SubscriberHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, reg := range r.subs {
		if reg.handle == h {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			r.logger.Debug("subscriber unregistered", "name", reg.sub.Name(), "handle", h)
			return true
		}
	}
	return false
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Close removes every subscriber.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = nil
}

// Notify delivers one batch of events to every subscriber in registration order.
func (r *Registry) Notify(events []Event) {
	if len(events) == 0 {
		return
	}

	r.mu.RLock()
	snapshot := make([]registration, len(r.subs))
	copy(snapshot, r.subs)
	r.mu.RUnlock()

	for _, reg := range snapshot {
		reg.sub.OnEvents(events)
	}
}

func (r *Registry) lookup(h SubscriberHandle) (Subscriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reg := range r.subs {
		if reg.handle == h {
			return reg.sub, true
		}
	}
	return nil, false
}

// Lookup returns the subscriber registered under h as its concrete type.
// A missing handle and a type mismatch both report (zero, false).
func Lookup[T Subscriber](r *Registry, h SubscriberHandle) (T, bool) {
	var zero T
	sub, ok := r.lookup(h)
	if !ok {
		return zero, false
	}
	typed, ok := sub.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// FuncSubscriber adapts a function to the Subscriber interface.
type FuncSubscriber struct {
	name string
	fn   func([]Event)
}

// NewFuncSubscriber returns a subscriber that calls fn with each batch.
func NewFuncSubscriber(name string, fn func([]Event)) *FuncSubscriber {
	return &FuncSubscriber{name: name, fn: fn}
}

// Name implements Subscriber.
func (f *FuncSubscriber) Name() string { return f.name }

// OnEvents implements Subscriber.
func (f *FuncSubscriber) OnEvents(events []Event) { f.fn(events) }
