package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotAuthenticated is returned by client operations that need a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrProfileNotLoaded is returned when a profile mutation runs before the profile was fetched.
	ErrProfileNotLoaded = errors.New("profile not loaded")
	// ErrMalformedResponse marks a server error response whose body could not be parsed.
	ErrMalformedResponse = errors.New("malformed server response")

	ErrEmailTaken         = errors.New("email is already registered")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnsupportedMedia   = errors.New("unsupported image type")
	ErrFileTooLarge       = errors.New("File too large")
	ErrEmptyFile          = errors.New("file is empty")
	ErrNoAvatar           = errors.New("profile has no avatar")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RemoteError is a failure reported by a remote service. Error returns the
// server supplied message unchanged so it can be shown to the user as is.
type RemoteError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
