package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/media/sniffer"
	"github.com/dtroode/taskhub-server/internal/metrics"
	"github.com/dtroode/taskhub-server/internal/model"
)

const (
	maxDisplayNameLength = 80
	maxBioLength         = 500
	maxLocationLength    = 100
	maxWebsiteLength     = 200
)

// Profile serves the profile data endpoint and avatar management.
type Profile struct {
	profileStore   model.ProfileStore
	storage        model.Storage
	maxAvatarBytes int64
	metrics        metrics.Recorder
	logger         *logger.Logger
}

func NewProfile(
	profileStore model.ProfileStore,
	storage model.Storage,
	maxAvatarBytes int64,
	recorder metrics.Recorder,
	logger *logger.Logger,
) *Profile {
	return &Profile{
		profileStore:   profileStore,
		storage:        storage,
		maxAvatarBytes: maxAvatarBytes,
		metrics:        recorder,
		logger:         logger,
	}
}

// Get returns the profile of the user.
func (s *Profile) Get(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	profile, err := s.profileStore.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.logger.Error("Profile service: failed to get profile",
				"user_id", userID,
				"error", err.Error())
		}
		return model.Profile{}, err
	}
	return profile, nil
}

// Update applies a partial update of the user-editable fields.
// The store stamps updated_at.
func (s *Profile) Update(ctx context.Context, userID uuid.UUID, update model.ProfileUpdate) (model.Profile, error) {
	if err := validateProfileUpdate(update); err != nil {
		return model.Profile{}, err
	}

	profile, err := s.profileStore.Update(ctx, userID, update)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.logger.Error("Profile service: failed to update profile",
				"user_id", userID,
				"error", err.Error())
		}
		return model.Profile{}, err
	}

	s.logger.Info("Profile service: profile updated",
		"user_id", userID)

	return profile, nil
}

// UploadAvatar stores a new avatar image and points the profile at it.
// The previous avatar object is removed once the profile references the
// new one.
func (s *Profile) UploadAvatar(ctx context.Context, userID uuid.UUID, reader io.Reader, size int64) (profile model.Profile, err error) {
	defer func() { s.metrics.RecordAvatar("upload", avatarResult(err)) }()

	if size == 0 {
		return model.Profile{}, model.ErrEmptyFile
	}
	if size > s.maxAvatarBytes {
		return model.Profile{}, model.ErrFileTooLarge
	}

	current, err := s.profileStore.GetByID(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}

	kind, head, err := sniffer.Detect(reader)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnknownType) {
			if len(head) == 0 {
				return model.Profile{}, model.ErrEmptyFile
			}
			return model.Profile{}, model.ErrUnsupportedMedia
		}
		return model.Profile{}, fmt.Errorf("failed to read avatar: %w", err)
	}

	key := fmt.Sprintf("avatars/%s/%s.%s", userID, uuid.New(), kind.Extension())
	body := io.MultiReader(bytes.NewReader(head), reader)

	if err := s.storage.Upload(ctx, key, body, size, kind.MIME); err != nil {
		s.logger.Error("Profile service: failed to upload avatar",
			"user_id", userID,
			"key", key,
			"error", err.Error())
		return model.Profile{}, fmt.Errorf("failed to upload avatar: %w", err)
	}

	avatarURL := s.storage.URL(key)
	profile, err = s.profileStore.SetAvatar(ctx, userID, &avatarURL, &key)
	if err != nil {
		s.logger.Error("Profile service: failed to save avatar url",
			"user_id", userID,
			"error", err.Error())
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("Profile service: failed to remove orphaned avatar",
				"key", key,
				"error", delErr.Error())
		}
		return model.Profile{}, fmt.Errorf("failed to save avatar: %w", err)
	}

	if current.AvatarKey != nil && *current.AvatarKey != key {
		s.removeObject(ctx, *current.AvatarKey)
	}

	s.logger.Info("Profile service: avatar uploaded",
		"user_id", userID,
		"key", key,
		"size", size)

	return profile, nil
}

// DeleteAvatar clears the avatar of the user. Deleting a missing avatar
// returns the unchanged profile.
func (s *Profile) DeleteAvatar(ctx context.Context, userID uuid.UUID) (profile model.Profile, err error) {
	defer func() { s.metrics.RecordAvatar("delete", avatarResult(err)) }()

	current, err := s.profileStore.GetByID(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}

	if current.AvatarURL == nil && current.AvatarKey == nil {
		return current, nil
	}

	profile, err = s.profileStore.SetAvatar(ctx, userID, nil, nil)
	if err != nil {
		s.logger.Error("Profile service: failed to clear avatar",
			"user_id", userID,
			"error", err.Error())
		return model.Profile{}, fmt.Errorf("failed to clear avatar: %w", err)
	}

	if current.AvatarKey != nil {
		s.removeObject(ctx, *current.AvatarKey)
	}

	s.logger.Info("Profile service: avatar deleted",
		"user_id", userID)

	return profile, nil
}

func (s *Profile) removeObject(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Profile service: failed to remove previous avatar",
			"key", key,
			"error", err.Error())
	}
}

func avatarResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, model.ErrUnsupportedMedia), errors.Is(err, model.ErrEmptyFile):
		return "rejected"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func validateProfileUpdate(update model.ProfileUpdate) error {
	if update.IsEmpty() {
		return model.NewValidationError("profile", "no fields to update")
	}
	if err := checkLength("display_name", update.DisplayName, maxDisplayNameLength); err != nil {
		return err
	}
	if err := checkLength("bio", update.Bio, maxBioLength); err != nil {
		return err
	}
	if err := checkLength("location", update.Location, maxLocationLength); err != nil {
		return err
	}
	if err := checkLength("website", update.Website, maxWebsiteLength); err != nil {
		return err
	}
	if update.Website != nil && *update.Website != "" {
		u, err := url.Parse(*update.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return model.NewValidationError("website", "must be an http or https URL")
		}
	}
	return nil
}

func checkLength(field string, value *string, limit int) error {
	if value != nil && utf8.RuneCountInString(*value) > limit {
		return model.NewValidationError(field, fmt.Sprintf("must be at most %d characters", limit))
	}
	return nil
}
