package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/taskhub-server/internal/model"
)

func TestUniqueConstraint(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantConstraint string
		wantOK         bool
	}{
		{
			name:           "unique violation",
			err:            &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"},
			wantConstraint: "users_email_key",
			wantOK:         true,
		},
		{
			name:           "wrapped unique violation",
			err:            fmt.Errorf("failed to insert profile: %w", &pgconn.PgError{Code: "23505", ConstraintName: "profiles_username_key"}),
			wantConstraint: "profiles_username_key",
			wantOK:         true,
		},
		{
			name: "foreign key violation",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "profiles_id_fkey"},
		},
		{
			name: "not a postgres error",
			err:  errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			constraint, ok := uniqueConstraint(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantConstraint, constraint)
		})
	}
}

func TestSignUpError(t *testing.T) {
	t.Run("taken username", func(t *testing.T) {
		err := signUpError(fmt.Errorf("failed to insert profile: %w",
			&pgconn.PgError{Code: "23505", ConstraintName: "profiles_username_key"}))
		assert.ErrorIs(t, err, model.ErrUsernameTaken)
	})

	t.Run("taken email", func(t *testing.T) {
		err := signUpError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
		assert.ErrorIs(t, err, model.ErrEmailTaken)
	})

	t.Run("other failure is wrapped", func(t *testing.T) {
		cause := &pgconn.PgError{Code: "23503", ConstraintName: "profiles_id_fkey"}
		err := signUpError(cause)

		require.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrEmailTaken)
		assert.NotErrorIs(t, err, model.ErrUsernameTaken)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "failed to create user")
	})
}
