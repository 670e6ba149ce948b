package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/taskhub-server/internal/model"
)

var _ model.ProfileStore = (*ProfileRepository)(nil)

// psq builds statements with Postgres placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const profileColumns = `id, username, display_name, avatar_url, avatar_key, bio, location, website, credits, created_at, updated_at`

type ProfileRepository struct {
	db *Connection
}

func NewProfileRepository(db *Connection) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, model.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("failed to get profile by id: %w", err)
	}

	return profile, nil
}

// Update writes the set fields of update and stamps updated_at, returning the stored row.
func (r *ProfileRepository) Update(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) (model.Profile, error) {
	query, args, err := buildUpdateQuery(id, update.Fields())
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to build profile update: %w", err)
	}

	profile, err := scanProfile(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, model.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("failed to update profile: %w", err)
	}

	return profile, nil
}

// SetAvatar replaces avatar_url and avatar_key; nil values clear them.
func (r *ProfileRepository) SetAvatar(ctx context.Context, id uuid.UUID, url, key *string) (model.Profile, error) {
	query, args, err := buildUpdateQuery(id, map[string]any{
		"avatar_url": url,
		"avatar_key": key,
	})
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to build avatar update: %w", err)
	}

	profile, err := scanProfile(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, model.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("failed to set avatar: %w", err)
	}

	return profile, nil
}

func buildUpdateQuery(id uuid.UUID, fields map[string]any) (string, []any, error) {
	q := psq.Update("profiles")
	if len(fields) > 0 {
		q = q.SetMap(fields)
	}
	return q.Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Expr("id = ?", id)).
		Suffix("RETURNING " + profileColumns).
		ToSql()
}

func scanProfile(row pgx.Row) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(
		&p.ID, &p.Username, &p.DisplayName, &p.AvatarURL, &p.AvatarKey,
		&p.Bio, &p.Location, &p.Website, &p.Credits, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
