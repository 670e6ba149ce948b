package context

import (
	"context"

	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/model"
)

type claimsKey struct{}

// Manager stores the authenticated user claims in request contexts.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetUserToContext returns a copy of ctx carrying the verified claims.
func (m *Manager) SetUserToContext(ctx context.Context, claims model.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaimsFromContext returns the claims stored by SetUserToContext.
func (m *Manager) GetClaimsFromContext(ctx context.Context) (model.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(model.AccessClaims)
	if !ok || claims.UserID == uuid.Nil {
		return model.AccessClaims{}, false
	}
	return claims, true
}

// GetUserIDFromContext returns the authenticated user ID.
func (m *Manager) GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := m.GetClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return claims.UserID, true
}

var _ model.ContextManager = (*Manager)(nil)
