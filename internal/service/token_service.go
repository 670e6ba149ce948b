package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
)

// TokenPair is a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// TokenService provides high-level operations for issuing, refreshing,
// and revoking tokens. It composes the TokenManager and RefreshTokenStore.
type TokenService struct {
	manager    model.TokenManager
	store      model.RefreshTokenStore
	users      model.UserStore
	refreshTTL time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

func NewTokenService(
	manager model.TokenManager,
	store model.RefreshTokenStore,
	users model.UserStore,
	refreshTTL time.Duration,
	logger *logger.Logger,
) *TokenService {
	return &TokenService{
		manager:    manager,
		store:      store,
		users:      users,
		refreshTTL: refreshTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Issue creates a new token pair for user and persists the refresh token.
func (s *TokenService) Issue(ctx context.Context, user model.User) (TokenPair, error) {
	return s.issue(ctx, user, nil)
}

// Refresh rotates a presented refresh token: the old token is revoked and a
// new pair is issued for its owner.
func (s *TokenService) Refresh(ctx context.Context, presentedRefresh string) (TokenPair, model.User, error) {
	userID, jti, err := s.manager.ParseRefreshToken(presentedRefresh)
	if err != nil {
		return TokenPair{}, model.User{}, fmt.Errorf("%w: %v", model.ErrTokenInvalid, err)
	}

	rt, err := s.store.GetByJTI(ctx, jti)
	if err != nil {
		return TokenPair{}, model.User{}, err
	}

	if err := validateRecord(rt, hashRefresh(presentedRefresh), s.now()); err != nil {
		s.logger.Warn("Token service: refresh token rejected",
			"user_id", userID,
			"jti", jti,
			"error", err.Error())
		return TokenPair{}, model.User{}, err
	}

	if err := s.store.RevokeByJTI(ctx, jti); err != nil {
		if errors.Is(err, model.ErrTokenRevoked) {
			// rotated concurrently by another request
			s.logger.Warn("Token service: refresh token already rotated", "user_id", userID, "jti", jti)
			return TokenPair{}, model.User{}, err
		}
		return TokenPair{}, model.User{}, fmt.Errorf("failed to revoke old refresh: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return TokenPair{}, model.User{}, fmt.Errorf("failed to get token owner: %w", err)
	}

	pair, err := s.issue(ctx, user, &rt.JTI)
	if err != nil {
		return TokenPair{}, model.User{}, err
	}

	return pair, user, nil
}

// RevokeByToken revokes a refresh token presented by its owner.
func (s *TokenService) RevokeByToken(ctx context.Context, userID uuid.UUID, presentedRefresh string) error {
	tokenUser, jti, err := s.manager.ParseRefreshToken(presentedRefresh)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrTokenInvalid, err)
	}
	if tokenUser != userID {
		return model.ErrTokenMismatch
	}
	if err := s.store.RevokeByJTI(ctx, jti); err != nil && !errors.Is(err, model.ErrTokenRevoked) {
		return err
	}
	return nil
}

func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	return s.store.RevokeAllByUser(ctx, userID)
}

// Authenticate validates a bearer access token.
func (s *TokenService) Authenticate(_ context.Context, token string) (model.AccessClaims, error) {
	return s.manager.ParseAccessToken(token)
}

// PurgeExpired deletes refresh tokens that can no longer be used.
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Token service: purged expired refresh tokens", "count", n)
	}
	return n, nil
}

func (s *TokenService) issue(ctx context.Context, user model.User, rotatedFrom *string) (TokenPair, error) {
	access, expiresAt, err := s.manager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, jti, err := s.manager.GenerateRefreshToken(user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh: %w", err)
	}

	now := s.now()
	rt := model.RefreshToken{
		ID:             uuid.New(),
		JTI:            jti,
		UserID:         user.ID,
		TokenHash:      hashRefresh(refresh),
		IssuedAt:       now,
		ExpiresAt:      now.Add(s.refreshTTL),
		RotatedFromJTI: rotatedFrom,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Create(ctx, rt); err != nil {
		return TokenPair{}, fmt.Errorf("persist refresh: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh, AccessExpiresAt: expiresAt}, nil
}

func hashRefresh(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

func validateRecord(rt model.RefreshToken, presentedHash []byte, now time.Time) error {
	if rt.RevokedAt != nil {
		return model.ErrTokenRevoked
	}
	if now.After(rt.ExpiresAt) {
		return model.ErrTokenExpired
	}
	if subtle.ConstantTimeCompare(rt.TokenHash, presentedHash) != 1 {
		return model.ErrTokenMismatch
	}
	return nil
}
