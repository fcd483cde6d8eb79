// Package session tracks whether the user is signed in and decides which
// screen is shown.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/harrisonrobin/visitdesk/pkg/auth"
)

type State int

const (
	// Unknown while the stored session is still being looked up.
	Unknown State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var ErrInvalidTransition = errors.New("invalid session transition")

// Change is reported to OnChange listeners after every accepted transition,
// including token refreshes that keep the state.
type Change struct {
	From, To State
	Session  *auth.Session
}

// Gate is safe for concurrent use.
type Gate struct {
	mu       sync.Mutex
	state    State
	session  *auth.Session
	onChange func(Change)
	log      logr.Logger
}

func NewGate(log logr.Logger) *Gate {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Gate{log: log.WithName("session")}
}

// OnChange sets the listener for accepted transitions. It is called without
// the gate's lock held.
func (g *Gate) OnChange(fn func(Change)) {
	g.mu.Lock()
	g.onChange = fn
	g.mu.Unlock()
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Session is the current session, nil unless Authenticated.
func (g *Gate) Session() *auth.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

func (g *Gate) transition(allowed []State, to State, sess *auth.Session) error {
	g.mu.Lock()
	from := g.state
	ok := false
	for _, s := range allowed {
		if s == from {
			ok = true
			break
		}
	}
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	g.state = to
	g.session = sess
	fn := g.onChange
	g.mu.Unlock()

	g.log.V(1).Info("session state", "from", from.String(), "to", to.String())
	if fn != nil {
		fn(Change{From: from, To: to, Session: sess})
	}
	return nil
}

// Resolve settles the initial lookup. A nil session means signed out.
func (g *Gate) Resolve(sess *auth.Session) error {
	to := Anonymous
	if sess != nil {
		to = Authenticated
	}
	return g.transition([]State{Unknown}, to, sess)
}

func (g *Gate) SignedIn(sess *auth.Session) error {
	if sess == nil {
		return fmt.Errorf("%w: sign-in without a session", ErrInvalidTransition)
	}
	return g.transition([]State{Anonymous}, Authenticated, sess)
}

func (g *Gate) SignedOut() error {
	return g.transition([]State{Authenticated}, Anonymous, nil)
}

// Refreshed swaps in a renewed session without changing state.
func (g *Gate) Refreshed(sess *auth.Session) error {
	if sess == nil {
		return fmt.Errorf("%w: refresh without a session", ErrInvalidTransition)
	}
	return g.transition([]State{Authenticated}, Authenticated, sess)
}

// Handle applies an auth event. Events that do not fit the current state are
// ignored; they only happen when a notification races the initial lookup.
func (g *Gate) Handle(ev auth.Event, sess *auth.Session) {
	var err error
	switch ev {
	case auth.SignedIn:
		if g.State() == Authenticated {
			err = g.Refreshed(sess)
		} else {
			err = g.SignedIn(sess)
		}
	case auth.TokenRefreshed:
		err = g.Refreshed(sess)
	case auth.SignedOut:
		err = g.SignedOut()
	case auth.InitialSession:
		err = g.Resolve(sess)
	}
	if err != nil {
		g.log.V(1).Info("ignored auth event", "event", string(ev), "error", err.Error())
	}
}

// Authenticator is the part of the auth client the gate needs.
type Authenticator interface {
	GetSession(ctx context.Context) (*auth.Session, error)
	Subscribe(fn auth.Listener) *auth.Subscription
}

// Attach subscribes the gate to a's session changes and resolves the stored
// session. The returned release func unsubscribes; after it returns the gate
// receives no more events.
func (g *Gate) Attach(ctx context.Context, a Authenticator) (release func(), err error) {
	sub := a.Subscribe(g.Handle)
	sess, err := a.GetSession(ctx)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	if g.State() == Unknown {
		if err := g.Resolve(sess); err != nil {
			g.log.V(1).Info("initial session already resolved", "error", err.Error())
		}
	}
	var once sync.Once
	return func() { once.Do(sub.Unsubscribe) }, nil
}
