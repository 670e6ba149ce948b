package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/metrics"
	"github.com/dtroode/taskhub-server/internal/model"
)

const (
	tokenTypeBearer   = "bearer"
	minPasswordLength = 8
	maxPasswordLength = 72
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

// Auth implements the identity provider: registration, password sign-in,
// token refresh and sign-out.
type Auth struct {
	userStore model.UserStore
	tokens    *TokenService
	metrics   metrics.Recorder
	logger    *logger.Logger

	hashCost      int
	dummyHashOnce sync.Once
	dummyHash     []byte
	now           func() time.Time
}

func NewAuth(
	userStore model.UserStore,
	tokens *TokenService,
	recorder metrics.Recorder,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		userStore: userStore,
		tokens:    tokens,
		metrics:   recorder,
		logger:    logger,
		hashCost:  bcrypt.DefaultCost,
		now:       time.Now,
	}
}

// SignUp registers a user together with its profile and signs it in.
func (a *Auth) SignUp(ctx context.Context, params model.SignUpParams) (session model.Session, err error) {
	defer func() { a.metrics.RecordAuth("signup", err == nil) }()

	params.Email = normalizeEmail(params.Email)
	params.Username = strings.TrimSpace(params.Username)

	if err := validateSignUp(params); err != nil {
		return model.Session{}, err
	}

	a.logger.Debug("Auth service: starting user registration",
		"email", params.Email,
		"username", params.Username)

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), a.hashCost)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := a.now().UTC()
	userID := uuid.New()

	user, _, err := a.userStore.CreateWithProfile(ctx,
		model.User{
			ID:           userID,
			Email:        params.Email,
			PasswordHash: hash,
			Metadata:     params.Metadata,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		model.Profile{
			ID:        userID,
			Username:  params.Username,
			CreatedAt: now,
			UpdatedAt: now,
		})
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) || errors.Is(err, model.ErrUsernameTaken) {
			a.logger.Info("Auth service: registration rejected",
				"email", params.Email,
				"error", err.Error())
			return model.Session{}, err
		}
		a.logger.Error("Auth service: failed to create user",
			"email", params.Email,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("failed to create user: %w", err)
	}

	pair, err := a.tokens.Issue(ctx, user)
	if err != nil {
		a.logger.Error("Auth service: failed to issue tokens",
			"user_id", user.ID,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	a.logger.Info("Auth service: user registered",
		"user_id", user.ID)

	return a.buildSession(user, pair), nil
}

// SignIn verifies email and password and issues a new session.
func (a *Auth) SignIn(ctx context.Context, creds model.Credentials) (session model.Session, err error) {
	defer func() { a.metrics.RecordAuth("signin", err == nil) }()

	email := normalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return model.Session{}, model.ErrInvalidCredentials
	}

	user, err := a.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// keep timing close to the found-user path
			_ = bcrypt.CompareHashAndPassword(a.getDummyHash(), []byte(creds.Password))
			return model.Session{}, model.ErrInvalidCredentials
		}
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if user.DeletedAt != nil {
		return model.Session{}, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		a.logger.Info("Auth service: password mismatch",
			"user_id", user.ID)
		return model.Session{}, model.ErrInvalidCredentials
	}

	pair, err := a.tokens.Issue(ctx, user)
	if err != nil {
		a.logger.Error("Auth service: failed to issue tokens",
			"user_id", user.ID,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	a.logger.Info("Auth service: user signed in",
		"user_id", user.ID)

	return a.buildSession(user, pair), nil
}

// Refresh exchanges a refresh token for a new session.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (session model.Session, err error) {
	defer func() { a.metrics.RecordAuth("refresh", err == nil) }()

	if refreshToken == "" {
		return model.Session{}, model.ErrTokenInvalid
	}

	pair, user, err := a.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return model.Session{}, err
	}

	return a.buildSession(user, pair), nil
}

// SignOut revokes the presented refresh token, or every refresh token of
// the user when none is presented.
func (a *Auth) SignOut(ctx context.Context, userID uuid.UUID, refreshToken string) (err error) {
	defer func() { a.metrics.RecordAuth("signout", err == nil) }()

	if refreshToken == "" {
		err = a.tokens.RevokeAllForUser(ctx, userID)
	} else {
		err = a.tokens.RevokeByToken(ctx, userID, refreshToken)
	}
	if err != nil {
		a.logger.Error("Auth service: failed to revoke tokens",
			"user_id", userID,
			"error", err.Error())
		return err
	}

	a.logger.Info("Auth service: user signed out",
		"user_id", userID)

	return nil
}

// GetUser returns the public identity of the user.
func (a *Auth) GetUser(ctx context.Context, userID uuid.UUID) (model.Identity, error) {
	user, err := a.userStore.GetByID(ctx, userID)
	if err != nil {
		return model.Identity{}, err
	}
	return user.Identity(), nil
}

func (a *Auth) buildSession(user model.User, pair TokenPair) model.Session {
	expiresIn := int64(pair.AccessExpiresAt.Sub(a.now()).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}

	return model.Session{
		AccessToken:  pair.AccessToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    expiresIn,
		ExpiresAt:    pair.AccessExpiresAt.Unix(),
		RefreshToken: pair.RefreshToken,
		User:         user.Identity(),
	}
}

func (a *Auth) getDummyHash() []byte {
	a.dummyHashOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("taskhub-dummy-password"), a.hashCost)
	})
	return a.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateSignUp(params model.SignUpParams) error {
	if params.Email == "" || !strings.Contains(params.Email, "@") {
		return model.NewValidationError("email", "must be a valid email address")
	}
	if len(params.Password) < minPasswordLength {
		return model.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if len(params.Password) > maxPasswordLength {
		return model.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordLength))
	}
	if !usernamePattern.MatchString(params.Username) {
		return model.NewValidationError("username", "must be 3-30 characters of lowercase letters, digits or underscore")
	}
	return nil
}
