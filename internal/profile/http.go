package profile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/remote"
)

const (
	profilePath = "/api/profile"
	avatarPath  = "/api/profile/avatar"

	avatarField = "avatar"
)

type profileEnvelope struct {
	Profile model.Profile `json:"profile"`
}

// HTTPSource reads and updates profiles through the taskhub HTTP API.
type HTTPSource struct {
	api *remote.Client
}

var _ Source = (*HTTPSource)(nil)

func NewHTTPSource(baseURL string, httpClient *http.Client) *HTTPSource {
	return &HTTPSource{api: remote.NewClient(baseURL, httpClient)}
}

func (s *HTTPSource) GetProfile(ctx context.Context, accessToken string, userID uuid.UUID) (model.Profile, error) {
	var out profileEnvelope
	if err := s.api.DoJSON(ctx, "get profile", http.MethodGet, profilePath, accessToken, nil, &out); err != nil {
		return model.Profile{}, err
	}
	return checkOwner(out.Profile, userID)
}

func (s *HTTPSource) UpdateProfile(ctx context.Context, accessToken string, userID uuid.UUID, update model.ProfileUpdate) (model.Profile, error) {
	var out profileEnvelope
	if err := s.api.DoJSON(ctx, "update profile", http.MethodPatch, profilePath, accessToken, update, &out); err != nil {
		return model.Profile{}, err
	}
	return checkOwner(out.Profile, userID)
}

// checkOwner rejects a row that belongs to someone other than userID.
func checkOwner(p model.Profile, userID uuid.UUID) (model.Profile, error) {
	if p.ID != userID {
		return model.Profile{}, fmt.Errorf("%w: profile %s returned for user %s", model.ErrMalformedResponse, p.ID, userID)
	}
	return p, nil
}

// HTTPAvatarClient calls the avatar endpoints of the taskhub HTTP API.
type HTTPAvatarClient struct {
	api *remote.Client
}

var _ AvatarClient = (*HTTPAvatarClient)(nil)

func NewHTTPAvatarClient(baseURL string, httpClient *http.Client) *HTTPAvatarClient {
	return &HTTPAvatarClient{api: remote.NewClient(baseURL, httpClient)}
}

// Upload sends data as the multipart field "avatar".
func (c *HTTPAvatarClient) Upload(ctx context.Context, accessToken, filename string, data io.Reader) (model.Profile, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile(avatarField, filename)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return model.Profile{}, fmt.Errorf("failed to read avatar: %w", err)
	}
	if err := mw.Close(); err != nil {
		return model.Profile{}, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := c.api.NewRequest(ctx, http.MethodPost, avatarPath, accessToken, &body)
	if err != nil {
		return model.Profile{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out profileEnvelope
	if err := c.api.Do("upload avatar", req, &out); err != nil {
		return model.Profile{}, err
	}
	return out.Profile, nil
}

func (c *HTTPAvatarClient) Delete(ctx context.Context, accessToken string) (model.Profile, error) {
	var out profileEnvelope
	if err := c.api.DoJSON(ctx, "delete avatar", http.MethodDelete, avatarPath, accessToken, nil, &out); err != nil {
		return model.Profile{}, err
	}
	return out.Profile, nil
}
