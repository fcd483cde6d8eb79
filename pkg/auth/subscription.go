package auth

import (
	"sync"

	"github.com/google/uuid"
)

// Event names a session change.
type Event string

const (
	InitialSession Event = "INITIAL_SESSION"
	SignedIn       Event = "SIGNED_IN"
	SignedOut      Event = "SIGNED_OUT"
	TokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener receives session changes. The session is nil after sign-out.
type Listener func(Event, *Session)

// Subscription is a registered Listener. Once Unsubscribe returns the
// listener is never called again.
type Subscription struct {
	ID uuid.UUID

	mu     sync.Mutex
	fn     Listener
	active bool
	reg    *registry
}

// Unsubscribe removes the listener. It waits for an in-flight callback to
// finish, so it must not be called from inside that callback.
func (s *Subscription) Unsubscribe() {
	s.reg.remove(s.ID)
	s.mu.Lock()
	s.active = false
	s.fn = nil
	s.mu.Unlock()
}

func (s *Subscription) deliver(ev Event, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.fn(ev, sess.clone())
	}
}

type registry struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*Subscription
	// order keeps delivery in registration order.
	order []uuid.UUID
}

func newRegistry() *registry {
	return &registry{subs: make(map[uuid.UUID]*Subscription)}
}

func (r *registry) add(fn Listener) *Subscription {
	sub := &Subscription{ID: uuid.New(), fn: fn, active: true, reg: r}
	r.mu.Lock()
	r.subs[sub.ID] = sub
	r.order = append(r.order, sub.ID)
	r.mu.Unlock()
	return sub
}

func (r *registry) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; !ok {
		return
	}
	delete(r.subs, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *registry) emit(ev Event, sess *Session) {
	r.mu.Lock()
	snapshot := make([]*Subscription, 0, len(r.order))
	for _, id := range r.order {
		snapshot = append(snapshot, r.subs[id])
	}
	r.mu.Unlock()

	for _, sub := range snapshot {
		sub.deliver(ev, sess)
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
