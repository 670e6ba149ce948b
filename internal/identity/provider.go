// Package identity talks to the taskhub identity provider and publishes
// session lifecycle events.
package identity

import (
	"context"

	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/notify"
)

// Provider is the identity provider contract consumed by the session store.
type Provider interface {
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*model.Session, error)
	// Subscribe registers for change notifications. Events are delivered in
	// the order the provider emitted them.
	Subscribe() *notify.Subscription[model.AuthEvent]
	// SignOut invalidates the session. The local clear is announced with a
	// SIGNED_OUT event.
	SignOut(ctx context.Context) error
}

var _ Provider = (*Client)(nil)
