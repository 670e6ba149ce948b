package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/taskhub-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	query := `SELECT id, email, password_hash, metadata, created_at, updated_at, deleted_at
			  FROM users WHERE email = $1 AND deleted_at IS NULL`

	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Metadata,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var user model.User
	query := `SELECT id, email, password_hash, metadata, created_at, updated_at, deleted_at
			  FROM users WHERE id = $1 AND deleted_at IS NULL`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Metadata,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepository) CreateWithProfile(ctx context.Context, user model.User, profile model.Profile) (model.User, model.Profile, error) {
	userQuery := `INSERT INTO users (id, email, password_hash, metadata, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id, email, password_hash, metadata, created_at, updated_at, deleted_at`

	profileQuery := `INSERT INTO profiles (id, username, display_name, credits, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING ` + profileColumns

	if user.Metadata == nil {
		user.Metadata = map[string]any{}
	}

	var savedUser model.User
	var savedProfile model.Profile
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, userQuery,
			user.ID, user.Email, user.PasswordHash, user.Metadata, user.CreatedAt, user.UpdatedAt,
		).Scan(
			&savedUser.ID, &savedUser.Email, &savedUser.PasswordHash, &savedUser.Metadata,
			&savedUser.CreatedAt, &savedUser.UpdatedAt, &savedUser.DeletedAt,
		)
		if err != nil {
			return err
		}

		savedProfile, err = scanProfile(tx.QueryRow(ctx, profileQuery,
			savedUser.ID, profile.Username, profile.DisplayName, profile.Credits, user.CreatedAt, user.UpdatedAt,
		))
		return err
	})
	if err != nil {
		return model.User{}, model.Profile{}, signUpError(err)
	}

	return savedUser, savedProfile, nil
}

// signUpError maps a failed sign-up transaction to a domain error. The
// username is the only unique column on profiles; any other unique
// violation is the email.
func signUpError(err error) error {
	constraint, ok := uniqueConstraint(err)
	switch {
	case !ok:
		return fmt.Errorf("failed to create user: %w", err)
	case constraint == usernameConstraint:
		return model.ErrUsernameTaken
	default:
		return model.ErrEmailTaken
	}
}
