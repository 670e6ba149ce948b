package model

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the read-only user projection carried by a session.
type Identity struct {
	ID       uuid.UUID      `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is the token bundle issued by the identity provider.
type Session struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	RefreshToken string   `json:"refresh_token"`
	User         Identity `json:"user"`
}

// Expiry returns the access token expiry time.
func (s Session) Expiry() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

// ExpiresWithin reports whether the access token expires before now+d.
func (s Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	return !now.Add(d).Before(s.Expiry())
}

// AuthEventType names a session lifecycle transition.
type AuthEventType string

const (
	AuthEventInitialSession AuthEventType = "INITIAL_SESSION"
	AuthEventSignedIn       AuthEventType = "SIGNED_IN"
	AuthEventSignedOut      AuthEventType = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	AuthEventUserUpdated    AuthEventType = "USER_UPDATED"
)

// AuthEvent is a change notification pushed by the identity provider.
// Session is nil for sign-out. Err reports a provider stream failure; such
// events carry no state change.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
	Err     error
}

// SignUpParams contains the fields required to register a user.
type SignUpParams struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Username string         `json:"username"`
	Metadata map[string]any `json:"data,omitempty"`
}

// Credentials is an email/password pair.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
