package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
)

const (
	grantTypePassword     = "password"
	grantTypeRefreshToken = "refresh_token"

	maxJSONBodyBytes = 64 << 10
)

// AuthService defines the identity provider operations.
type AuthService interface {
	SignUp(ctx context.Context, params model.SignUpParams) (model.Session, error)
	SignIn(ctx context.Context, creds model.Credentials) (model.Session, error)
	Refresh(ctx context.Context, refreshToken string) (model.Session, error)
	SignOut(ctx context.Context, userID uuid.UUID, refreshToken string) error
	GetUser(ctx context.Context, userID uuid.UUID) (model.Identity, error)
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Auth handles the /api/auth endpoints.
type Auth struct {
	authService    AuthService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, contextManager model.ContextManager, logger *logger.Logger) *Auth {
	return &Auth{
		authService:    authService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// SignUp registers a user and returns its first session.
// POST /api/auth/signup
func (h *Auth) SignUp(w http.ResponseWriter, r *http.Request) {
	var params model.SignUpParams
	if err := decodeJSON(w, r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.authService.SignUp(r.Context(), params)
	if err != nil {
		h.logger.Info("Auth handler: sign up failed",
			"email", params.Email,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Token issues a session for the requested grant type.
// POST /api/auth/token?grant_type=password|refresh_token
func (h *Auth) Token(w http.ResponseWriter, r *http.Request) {
	var (
		session model.Session
		err     error
	)

	switch grant := r.URL.Query().Get("grant_type"); grant {
	case grantTypePassword:
		var creds model.Credentials
		if err := decodeJSON(w, r, &creds); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		session, err = h.authService.SignIn(r.Context(), creds)
	case grantTypeRefreshToken:
		var req refreshTokenRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		session, err = h.authService.Refresh(r.Context(), req.RefreshToken)
	default:
		writeError(w, http.StatusBadRequest, "Unsupported grant_type")
		return
	}

	if err != nil {
		h.logger.Info("Auth handler: token request failed",
			"grant_type", r.URL.Query().Get("grant_type"),
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Logout revokes the presented refresh token, or all of the user's tokens
// when the body carries none.
// POST /api/auth/logout
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req refreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authService.SignOut(r.Context(), userID, req.RefreshToken); err != nil {
		h.logger.Error("Auth handler: logout failed",
			"user_id", userID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// User returns the identity behind the bearer token.
// GET /api/auth/user
func (h *Auth) User(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	identity, err := h.authService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h.logger.Error("Auth handler: failed to get user",
			"user_id", userID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, identity)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
