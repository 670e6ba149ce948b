package identity

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/notify"
	"github.com/dtroode/taskhub-server/internal/remote"
)

// DefaultRefreshMargin is how long before expiry a session is refreshed.
const DefaultRefreshMargin = time.Minute

type Option func(*Client)

// WithRefreshMargin overrides DefaultRefreshMargin.
func WithRefreshMargin(d time.Duration) Option {
	return func(c *Client) { c.refreshMargin = d }
}

// Client is the HTTP identity provider client. It owns the current session
// and announces every change to subscribers.
type Client struct {
	api           *remote.Client
	hub           *notify.Hub[model.AuthEvent]
	logger        *logger.Logger
	refreshMargin time.Duration
	now           func() time.Time

	mu      sync.Mutex
	session *model.Session

	// serializes refreshes; a refresh token is single use
	refreshMu sync.Mutex
}

func NewClient(baseURL string, httpClient *http.Client, logger *logger.Logger, opts ...Option) *Client {
	c := &Client{
		api:           remote.NewClient(baseURL, httpClient),
		hub:           notify.NewHub[model.AuthEvent](),
		logger:        logger,
		refreshMargin: DefaultRefreshMargin,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers for auth events.
func (c *Client) Subscribe() *notify.Subscription[model.AuthEvent] {
	return c.hub.Subscribe()
}

// SignUp registers a new account and signs it in.
func (c *Client) SignUp(ctx context.Context, params model.SignUpParams) (*model.Session, error) {
	var session model.Session
	if err := c.api.DoJSON(ctx, "sign up", http.MethodPost, "/api/auth/signup", "", params, &session); err != nil {
		return nil, err
	}

	c.setSession(&session, model.AuthEventSignedIn)
	c.logger.Info("Identity client: signed up", "user_id", session.User.ID)

	return cloneSession(&session), nil
}

// SignInWithPassword signs in with email and password.
func (c *Client) SignInWithPassword(ctx context.Context, creds model.Credentials) (*model.Session, error) {
	var session model.Session
	err := c.api.DoJSON(ctx, "sign in", http.MethodPost, "/api/auth/token?grant_type=password", "", creds, &session)
	if err != nil {
		return nil, err
	}

	c.setSession(&session, model.AuthEventSignedIn)
	c.logger.Info("Identity client: signed in", "user_id", session.User.ID)

	return cloneSession(&session), nil
}

// GetSession returns the current session, refreshing it first when it
// expires within the refresh margin.
func (c *Client) GetSession(ctx context.Context) (*model.Session, error) {
	current := c.current()
	if current == nil || !current.ExpiresWithin(c.now(), c.refreshMargin) {
		return current, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// another caller refreshed or signed out while we waited
	if latest := c.current(); latest == nil || latest.RefreshToken != current.RefreshToken {
		return latest, nil
	}

	return c.refreshLocked(ctx)
}

// RefreshSession exchanges the refresh token for a new session. A rejected
// refresh token signs the client out.
func (c *Client) RefreshSession(ctx context.Context) (*model.Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	return c.refreshLocked(ctx)
}

func (c *Client) refreshLocked(ctx context.Context) (*model.Session, error) {
	current := c.current()
	if current == nil {
		return nil, model.ErrNotAuthenticated
	}

	var session model.Session
	err := c.api.DoJSON(ctx, "refresh session", http.MethodPost, "/api/auth/token?grant_type=refresh_token", "",
		map[string]string{"refresh_token": current.RefreshToken}, &session)
	if err != nil {
		var rErr *model.RemoteError
		if errors.As(err, &rErr) && (rErr.Status == http.StatusUnauthorized || rErr.Status == http.StatusBadRequest) {
			if c.clearSessionIf(current.RefreshToken) {
				c.logger.Warn("Identity client: refresh token rejected, signing out",
					"user_id", current.User.ID,
					"error", err.Error())
			}
		}
		return nil, err
	}

	if !c.replaceSession(current.RefreshToken, &session) {
		// signed out or replaced while the refresh was in flight
		return nil, model.ErrNotAuthenticated
	}
	c.logger.Debug("Identity client: session refreshed", "user_id", session.User.ID)

	return cloneSession(&session), nil
}

// GetUser reloads the user identity from the provider and announces a
// USER_UPDATED event when it changed.
func (c *Client) GetUser(ctx context.Context) (*model.Identity, error) {
	current, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, model.ErrNotAuthenticated
	}

	var user model.Identity
	if err := c.api.DoJSON(ctx, "get user", http.MethodGet, "/api/auth/user", current.AccessToken, nil, &user); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.session != nil && c.session.User.ID == user.ID && !sameIdentity(c.session.User, user) {
		updated := *c.session
		updated.User = user
		c.session = &updated
		c.hub.Publish(model.AuthEvent{Type: model.AuthEventUserUpdated, Session: cloneSession(&updated)})
	}
	c.mu.Unlock()

	return &user, nil
}

// SignOut revokes the refresh token on the server and clears the local
// session. The local session is cleared and SIGNED_OUT emitted even when
// the server call fails; that error is returned.
func (c *Client) SignOut(ctx context.Context) error {
	current := c.current()
	if current == nil {
		return nil
	}

	err := c.api.DoJSON(ctx, "sign out", http.MethodPost, "/api/auth/logout", current.AccessToken,
		map[string]string{"refresh_token": current.RefreshToken}, nil)
	if err != nil {
		c.logger.Warn("Identity client: server sign out failed",
			"user_id", current.User.ID,
			"error", err.Error())
	}

	c.setSession(nil, model.AuthEventSignedOut)
	c.logger.Info("Identity client: signed out", "user_id", current.User.ID)

	return err
}

// StartAutoRefresh refreshes the session in the background whenever it is
// about to expire, checking every interval until ctx is done.
func (c *Client) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.GetSession(ctx); err != nil && ctx.Err() == nil {
					c.logger.Warn("Identity client: auto refresh failed", "error", err.Error())
				}
			}
		}
	}()
}

// Close ends every subscription.
func (c *Client) Close() {
	c.hub.Close()
}

func (c *Client) current() *model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneSession(c.session)
}

// setSession swaps the session and publishes under one lock so that event
// order matches state order.
func (c *Client) setSession(session *model.Session, event model.AuthEventType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = cloneSession(session)
	c.hub.Publish(model.AuthEvent{Type: event, Session: cloneSession(session)})
}

// replaceSession installs a refreshed session only if the session it was
// derived from is still current.
func (c *Client) replaceSession(refreshToken string, session *model.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.session.RefreshToken != refreshToken {
		return false
	}
	c.session = cloneSession(session)
	c.hub.Publish(model.AuthEvent{Type: model.AuthEventTokenRefreshed, Session: cloneSession(session)})
	return true
}

// clearSessionIf signs out only if the session holding refreshToken is
// still current. A newer sign-in is left alone.
func (c *Client) clearSessionIf(refreshToken string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.session.RefreshToken != refreshToken {
		return false
	}
	c.session = nil
	c.hub.Publish(model.AuthEvent{Type: model.AuthEventSignedOut})
	return true
}

func cloneSession(s *model.Session) *model.Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.User.Metadata != nil {
		cp.User.Metadata = make(map[string]any, len(s.User.Metadata))
		for k, v := range s.User.Metadata {
			cp.User.Metadata[k] = v
		}
	}
	return &cp
}

func sameIdentity(a, b model.Identity) bool {
	return a.ID == b.ID && a.Email == b.Email && reflect.DeepEqual(a.Metadata, b.Metadata)
}
