package model

import (
	"context"

	"github.com/google/uuid"
)

// ContextManager stores the authenticated user in request contexts.
type ContextManager interface {
	SetUserToContext(ctx context.Context, claims AccessClaims) context.Context
	GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool)
	GetClaimsFromContext(ctx context.Context) (AccessClaims, bool)
}
