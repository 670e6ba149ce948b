package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	// CreateWithProfile stores the user and its profile row atomically.
	CreateWithProfile(ctx context.Context, user User, profile Profile) (User, Profile, error)
}

// User represents a stored user with authentication material.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash []byte
	Metadata     map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Identity returns the public projection of the user.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Metadata: u.Metadata}
}
