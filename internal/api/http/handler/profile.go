package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
)

const (
	avatarFormField = "avatar"
	// room for multipart boundaries and headers on top of the file itself
	multipartOverhead = 64 << 10
	multipartMemory   = 1 << 20
)

// ProfileService defines profile and avatar operations.
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (model.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, update model.ProfileUpdate) (model.Profile, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, reader io.Reader, size int64) (model.Profile, error)
	DeleteAvatar(ctx context.Context, userID uuid.UUID) (model.Profile, error)
}

type profileResponse struct {
	Profile model.Profile `json:"profile"`
}

// Profile handles the /api/profile endpoints.
type Profile struct {
	profileService ProfileService
	contextManager model.ContextManager
	maxAvatarBytes int64
	logger         *logger.Logger
}

// NewProfile creates a new Profile handler.
func NewProfile(
	profileService ProfileService,
	contextManager model.ContextManager,
	maxAvatarBytes int64,
	logger *logger.Logger,
) *Profile {
	return &Profile{
		profileService: profileService,
		contextManager: contextManager,
		maxAvatarBytes: maxAvatarBytes,
		logger:         logger,
	}
}

// Get returns the caller's profile.
// GET /api/profile
func (h *Profile) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.profileService.Get(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Profile: profile})
}

// Update applies a partial update to the caller's profile.
// PATCH /api/profile
func (h *Profile) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var update model.ProfileUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.profileService.Update(r.Context(), userID, update)
	if err != nil {
		h.logger.Info("Profile handler: update failed",
			"user_id", userID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Profile: profile})
}

// UploadAvatar stores the multipart "avatar" file as the caller's avatar.
// POST /api/profile/avatar
func (h *Profile) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAvatarBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handleError(w, model.ErrFileTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(avatarFormField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	h.logger.Debug("Profile handler: processing avatar upload",
		"user_id", userID,
		"filename", header.Filename,
		"size", header.Size)

	profile, err := h.profileService.UploadAvatar(r.Context(), userID, file, header.Size)
	if err != nil {
		h.logger.Info("Profile handler: avatar upload failed",
			"user_id", userID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Profile: profile})
}

// DeleteAvatar clears the caller's avatar.
// DELETE /api/profile/avatar
func (h *Profile) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.profileService.DeleteAvatar(r.Context(), userID)
	if err != nil {
		h.logger.Info("Profile handler: avatar delete failed",
			"user_id", userID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Profile: profile})
}
