package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProfileStore defines persistence operations for profiles.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (Profile, error)
	Update(ctx context.Context, id uuid.UUID, update ProfileUpdate) (Profile, error)
	SetAvatar(ctx context.Context, id uuid.UUID, url, key *string) (Profile, error)
}

// Profile is the application user record keyed by the user ID.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Bio         *string   `json:"bio"`
	Location    *string   `json:"location"`
	Website     *string   `json:"website"`
	Credits     int       `json:"credits"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// AvatarKey is the object storage key of the uploaded avatar.
	AvatarKey *string `json:"-"`
}

// ProfileUpdate is a partial set of user-editable profile fields.
// Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Location    *string `json:"location,omitempty"`
	Website     *string `json:"website,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u ProfileUpdate) IsEmpty() bool {
	return u.DisplayName == nil && u.Bio == nil && u.Location == nil && u.Website == nil
}

// Fields returns the set columns keyed by column name.
func (u ProfileUpdate) Fields() map[string]any {
	fields := make(map[string]any, 4)
	if u.DisplayName != nil {
		fields["display_name"] = *u.DisplayName
	}
	if u.Bio != nil {
		fields["bio"] = *u.Bio
	}
	if u.Location != nil {
		fields["location"] = *u.Location
	}
	if u.Website != nil {
		fields["website"] = *u.Website
	}
	return fields
}
