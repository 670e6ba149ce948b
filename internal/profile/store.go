// Package profile keeps the signed-in user's profile in sync with the
// session and exposes server confirmed mutations.
package profile

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/notify"
	"github.com/dtroode/taskhub-server/internal/session"
)

// Source reads and updates profile rows.
type Source interface {
	GetProfile(ctx context.Context, accessToken string, userID uuid.UUID) (model.Profile, error)
	UpdateProfile(ctx context.Context, accessToken string, userID uuid.UUID, update model.ProfileUpdate) (model.Profile, error)
}

// AvatarClient talks to the avatar API.
type AvatarClient interface {
	Upload(ctx context.Context, accessToken, filename string, data io.Reader) (model.Profile, error)
	Delete(ctx context.Context, accessToken string) (model.Profile, error)
}

// Sessions is the part of the session store the profile store depends on.
type Sessions interface {
	Snapshot() session.State
	Watch() *notify.Subscription[session.IdentityChange]
}

// State is a snapshot of the store. Error holds the message of the last
// failed fetch.
type State struct {
	Profile *model.Profile
	Loading bool
	Error   string
}

// Store holds the profile of the signed-in user.
//
// Every identity change bumps a generation. A result is only committed when
// its generation and user are still current, so a response for a previous
// user never overwrites fresher state.
type Store struct {
	sessions Sessions
	source   Source
	avatars  AvatarClient
	logger   *logger.Logger

	mu         sync.RWMutex
	profile    *model.Profile
	errMsg     string
	inFlight   int
	generation uint64

	lifeMu  sync.Mutex
	started bool
	closed  bool
	sub     *notify.Subscription[session.IdentityChange]
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(sessions Sessions, source Source, avatars AvatarClient, logger *logger.Logger) *Store {
	return &Store{
		sessions: sessions,
		source:   source,
		avatars:  avatars,
		logger:   logger,
	}
}

// Start fetches the profile for the current identity and re-fetches it on
// every identity change until Close.
func (s *Store) Start(ctx context.Context) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.started || s.closed {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.sub = s.sessions.Watch()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fetchLogged(ctx)
	}()

	s.wg.Add(1)
	go s.watch(ctx, s.sub)
}

func (s *Store) watch(ctx context.Context, sub *notify.Subscription[session.IdentityChange]) {
	defer s.wg.Done()

	for change := range sub.Events() {
		s.reset(change.Current)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.fetchLogged(ctx)
		}()
	}
}

func (s *Store) fetchLogged(ctx context.Context) {
	if err := s.FetchProfile(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("Profile store: fetch failed", "error", err.Error())
	}
}

// reset drops the state of the previous identity.
func (s *Store) reset(current *model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.profile = nil
	s.errMsg = ""

	if current == nil {
		s.logger.Debug("Profile store: signed out, profile cleared")
	} else {
		s.logger.Debug("Profile store: identity changed", "user_id", current.ID)
	}
}

// Close stops watching the session and waits for background fetches.
func (s *Store) Close() {
	s.lifeMu.Lock()
	if s.closed {
		s.lifeMu.Unlock()
		return
	}
	s.closed = true
	sub, cancel := s.sub, s.cancel
	s.lifeMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	s.wg.Wait()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{Loading: s.inFlight > 0, Error: s.errMsg}
	if s.profile != nil {
		p := *s.profile
		st.Profile = &p
	}
	return st
}

// FetchProfile loads the profile of the signed-in user. Without a signed-in
// user the profile is cleared and nil is returned. A failed lookup clears
// the profile and records the error message.
func (s *Store) FetchProfile(ctx context.Context) error {
	sess, ok := s.current()
	if !ok {
		s.mu.Lock()
		s.profile = nil
		s.errMsg = ""
		s.mu.Unlock()
		return nil
	}

	gen := s.begin()
	defer s.end()

	p, err := s.source.GetProfile(ctx, sess.AccessToken, sess.User.ID)

	s.commit(gen, sess.User.ID, func() {
		if err != nil {
			s.profile = nil
			s.errMsg = err.Error()
			return
		}
		s.profile = &p
		s.errMsg = ""
	})

	return err
}

// RefreshProfile re-fetches the profile on demand.
func (s *Store) RefreshProfile(ctx context.Context) error {
	return s.FetchProfile(ctx)
}

// UpdateProfile sends the set fields of update and replaces the held
// profile with the server's row. It fails before any request when no user
// is signed in or no profile has been loaded. On failure the held profile
// is left untouched.
func (s *Store) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (model.Profile, error) {
	sess, ok := s.current()
	if !ok {
		return model.Profile{}, model.ErrNotAuthenticated
	}
	if !s.loadedFor(sess.User.ID) {
		return model.Profile{}, model.ErrProfileNotLoaded
	}

	gen := s.begin()
	defer s.end()

	p, err := s.source.UpdateProfile(ctx, sess.AccessToken, sess.User.ID, update)
	if err != nil {
		s.logger.Warn("Profile store: update failed", "user_id", sess.User.ID, "error", err.Error())
		return model.Profile{}, err
	}

	s.commit(gen, sess.User.ID, func() { s.profile = &p })
	return p, nil
}

// UploadAvatar uploads data as the avatar of the signed-in user and
// replaces the held profile with the returned one.
func (s *Store) UploadAvatar(ctx context.Context, filename string, data io.Reader) (model.Profile, error) {
	sess, ok := s.current()
	if !ok {
		return model.Profile{}, model.ErrNotAuthenticated
	}

	gen := s.begin()
	defer s.end()

	p, err := s.avatars.Upload(ctx, sess.AccessToken, filename, data)
	if err != nil {
		s.logger.Warn("Profile store: avatar upload failed", "user_id", sess.User.ID, "error", err.Error())
		return model.Profile{}, err
	}

	s.commit(gen, sess.User.ID, func() { s.profile = &p })
	return p, nil
}

// DeleteAvatar removes the avatar of the signed-in user and replaces the
// held profile with the returned one.
func (s *Store) DeleteAvatar(ctx context.Context) (model.Profile, error) {
	sess, ok := s.current()
	if !ok {
		return model.Profile{}, model.ErrNotAuthenticated
	}

	gen := s.begin()
	defer s.end()

	p, err := s.avatars.Delete(ctx, sess.AccessToken)
	if err != nil {
		s.logger.Warn("Profile store: avatar delete failed", "user_id", sess.User.ID, "error", err.Error())
		return model.Profile{}, err
	}

	s.commit(gen, sess.User.ID, func() { s.profile = &p })
	return p, nil
}

func (s *Store) current() (*model.Session, bool) {
	st := s.sessions.Snapshot()
	if st.Session == nil {
		return nil, false
	}
	return st.Session, true
}

func (s *Store) loadedFor(userID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile != nil && s.profile.ID == userID
}

// begin marks an operation in flight and returns the generation it runs in.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight++
	return s.generation
}

func (s *Store) end() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight--
}

// commit runs apply under the lock unless the identity changed since gen.
func (s *Store) commit(gen uint64, userID uuid.UUID, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || !s.sessionIs(userID) {
		s.logger.Debug("Profile store: discarding stale result", "user_id", userID)
		return
	}
	apply()
}

func (s *Store) sessionIs(userID uuid.UUID) bool {
	st := s.sessions.Snapshot()
	return st.User != nil && st.User.ID == userID
}
