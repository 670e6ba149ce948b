// Package session keeps the process-wide view of who is signed in. The
// identity provider pushes auth events over a subscription and the store
// applies them one at a time, in arrival order, on its own goroutine.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/identity"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/notify"
)

// ErrClosed is returned by Initialize after Close.
var ErrClosed = errors.New("session store is closed")

// Status is the authentication state of the store.
type Status int

const (
	StatusUnknown Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the store. Session and User are always
// replaced together.
type State struct {
	Status          Status
	Session         *model.Session
	User            *model.Identity
	IsAuthenticated bool
}

// IdentityChange is emitted when the signed-in user changes, including
// sign-in (Previous nil) and sign-out (Current nil).
type IdentityChange struct {
	Previous *model.Identity
	Current  *model.Identity
}

// Store owns the current session. Consumers only read it.
type Store struct {
	provider identity.Provider
	logger   *logger.Logger
	changes  *notify.Hub[IdentityChange]

	mu    sync.RWMutex
	state State

	ready     chan struct{}
	readyOnce sync.Once

	lifeMu  sync.Mutex
	started bool
	closed  bool
	sub     *notify.Subscription[model.AuthEvent]
}

func New(provider identity.Provider, logger *logger.Logger) *Store {
	return &Store{
		provider: provider,
		logger:   logger,
		changes:  notify.NewHub[IdentityChange](),
		ready:    make(chan struct{}),
	}
}

// Initialize subscribes to the provider, seeds the state from the
// provider's current session and starts applying events. Events delivered
// after the subscription was registered overwrite the seed. A failed
// initial fetch settles the store as unauthenticated.
func (s *Store) Initialize(ctx context.Context) error {
	s.lifeMu.Lock()
	if s.closed {
		s.lifeMu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.lifeMu.Unlock()
		return nil
	}
	s.started = true
	sub := s.provider.Subscribe()
	s.sub = sub
	s.lifeMu.Unlock()

	session, err := s.provider.GetSession(ctx)
	if err != nil {
		s.logger.Warn("Session store: failed to get initial session, treating as signed out",
			"error", err.Error())
		session = nil
	}
	s.apply(session)
	s.readyOnce.Do(func() { close(s.ready) })

	go s.run(sub)

	return nil
}

func (s *Store) run(sub *notify.Subscription[model.AuthEvent]) {
	for ev := range sub.Events() {
		if ev.Err != nil {
			s.logger.Error("Session store: provider stream error, keeping last state",
				"error", ev.Err.Error())
			continue
		}
		s.logger.Debug("Session store: auth event", "event", string(ev.Type))
		s.apply(ev.Session)
	}

	s.lifeMu.Lock()
	closed := s.closed
	s.lifeMu.Unlock()
	if !closed {
		s.logger.Warn("Session store: provider stream ended, keeping last state")
	}
}

// apply replaces the held session and announces an identity change when the
// user ID differs from the previous one.
func (s *Store) apply(session *model.Session) {
	next := stateFor(session)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state.User
	s.state = next

	if userID(prev) != userID(next.User) {
		s.changes.Publish(IdentityChange{Previous: prev, Current: next.User})
	}
}

func stateFor(session *model.Session) State {
	if session == nil {
		return State{Status: StatusUnauthenticated}
	}

	cp := *session
	user := cp.User
	return State{
		Status:          StatusAuthenticated,
		Session:         &cp,
		User:            &user,
		IsAuthenticated: true,
	}
}

func userID(u *model.Identity) uuid.UUID {
	if u == nil {
		return uuid.Nil
	}
	return u.ID
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready is closed once the initial state has been settled.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Watch subscribes to identity changes. Token refreshes for the same user
// are not identity changes.
func (s *Store) Watch() *notify.Subscription[IdentityChange] {
	return s.changes.Subscribe()
}

// AccessToken returns the current access token.
func (s *Store) AccessToken() (string, error) {
	st := s.Snapshot()
	if st.Session == nil {
		return "", model.ErrNotAuthenticated
	}
	return st.Session.AccessToken, nil
}

// Logout asks the provider to sign out. Local state is cleared by the
// SIGNED_OUT event that follows, not here.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Error("Session store: sign out failed", "error", err.Error())
		return err
	}
	return nil
}

// Close unsubscribes from the provider and ends every watcher. It is safe
// to call more than once and before Initialize.
func (s *Store) Close() {
	s.lifeMu.Lock()
	if s.closed {
		s.lifeMu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.lifeMu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	s.changes.Close()
}
