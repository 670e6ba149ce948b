package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/taskhub-server/internal/mocks"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/testutil"
)

func newTestTokenService(t *testing.T) (*TokenService, *mocks.TokenManager, *mocks.RefreshTokenStore, *mocks.UserStore) {
	t.Helper()

	manager := mocks.NewTokenManager(t)
	store := mocks.NewRefreshTokenStore(t)
	users := mocks.NewUserStore(t)

	return NewTokenService(manager, store, users, 24*time.Hour, testutil.MakeNoopLogger()), manager, store, users
}

func TestTokenService_Issue(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: uuid.New(), Email: "a@b.c"}
	expiresAt := time.Now().Add(time.Hour)

	svc, manager, store, _ := newTestTokenService(t)

	manager.On("GenerateAccessToken", user.ID, user.Email).Return("access", expiresAt, nil).Once()
	manager.On("GenerateRefreshToken", user.ID).Return("refresh", "jti-1", nil).Once()
	store.On("Create", ctx, mock.MatchedBy(func(rt model.RefreshToken) bool {
		return rt.JTI == "jti-1" &&
			rt.UserID == user.ID &&
			rt.RotatedFromJTI == nil &&
			assert.ObjectsAreEqual(hashRefresh("refresh"), rt.TokenHash)
	})).Return(nil).Once()

	pair, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "access", pair.AccessToken)
	assert.Equal(t, "refresh", pair.RefreshToken)
	assert.Equal(t, expiresAt, pair.AccessExpiresAt)
}

func TestTokenService_Issue_ManagerError(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: uuid.New(), Email: "a@b.c"}

	svc, manager, _, _ := newTestTokenService(t)

	manager.On("GenerateAccessToken", user.ID, user.Email).Return("", time.Time{}, assert.AnError).Once()

	_, err := svc.Issue(ctx, user)
	require.ErrorIs(t, err, assert.AnError)
}

func TestTokenService_Issue_StoreError(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: uuid.New(), Email: "a@b.c"}

	svc, manager, store, _ := newTestTokenService(t)

	manager.On("GenerateAccessToken", user.ID, user.Email).Return("access", time.Now(), nil).Once()
	manager.On("GenerateRefreshToken", user.ID).Return("refresh", "jti-1", nil).Once()
	store.On("Create", ctx, mock.Anything).Return(assert.AnError).Once()

	_, err := svc.Issue(ctx, user)
	require.ErrorIs(t, err, assert.AnError)
}

func TestTokenService_Refresh_Success(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: uuid.New(), Email: "a@b.c"}
	jti := "jti-old"
	presented := "refresh-old"

	svc, manager, store, users := newTestTokenService(t)

	manager.On("ParseRefreshToken", presented).Return(user.ID, jti, nil).Once()
	store.On("GetByJTI", ctx, jti).Return(model.RefreshToken{
		JTI:       jti,
		UserID:    user.ID,
		TokenHash: hashRefresh(presented),
		IssuedAt:  time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil).Once()
	store.On("RevokeByJTI", ctx, jti).Return(nil).Once()
	users.On("GetByID", ctx, user.ID).Return(user, nil).Once()
	manager.On("GenerateAccessToken", user.ID, user.Email).Return("access-new", time.Now().Add(time.Hour), nil).Once()
	manager.On("GenerateRefreshToken", user.ID).Return("refresh-new", "jti-new", nil).Once()
	store.On("Create", ctx, mock.MatchedBy(func(rt model.RefreshToken) bool {
		return rt.JTI == "jti-new" && rt.RotatedFromJTI != nil && *rt.RotatedFromJTI == jti
	})).Return(nil).Once()

	pair, owner, err := svc.Refresh(ctx, presented)
	require.NoError(t, err)
	assert.Equal(t, "access-new", pair.AccessToken)
	assert.Equal(t, "refresh-new", pair.RefreshToken)
	assert.Equal(t, user.ID, owner.ID)
}

func TestTokenService_Refresh_LostRotationRace(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	presented := "refresh-old"

	svc, manager, store, _ := newTestTokenService(t)

	manager.On("ParseRefreshToken", presented).Return(userID, "jti-old", nil).Once()
	store.On("GetByJTI", ctx, "jti-old").Return(model.RefreshToken{
		JTI:       "jti-old",
		UserID:    userID,
		TokenHash: hashRefresh(presented),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil).Once()
	store.On("RevokeByJTI", ctx, "jti-old").Return(model.ErrTokenRevoked).Once()

	_, _, err := svc.Refresh(ctx, presented)
	require.ErrorIs(t, err, model.ErrTokenRevoked)
}

func TestTokenService_Refresh_Rejected(t *testing.T) {
	revokedAt := time.Now().Add(-time.Minute)

	tests := []struct {
		name    string
		record  func(presented string) model.RefreshToken
		wantErr error
	}{
		{
			name: "revoked",
			record: func(presented string) model.RefreshToken {
				return model.RefreshToken{
					TokenHash: hashRefresh(presented),
					ExpiresAt: time.Now().Add(time.Hour),
					RevokedAt: &revokedAt,
				}
			},
			wantErr: model.ErrTokenRevoked,
		},
		{
			name: "expired",
			record: func(presented string) model.RefreshToken {
				return model.RefreshToken{
					TokenHash: hashRefresh(presented),
					ExpiresAt: time.Now().Add(-time.Hour),
				}
			},
			wantErr: model.ErrTokenExpired,
		},
		{
			name: "hash mismatch",
			record: func(string) model.RefreshToken {
				return model.RefreshToken{
					TokenHash: hashRefresh("something-else"),
					ExpiresAt: time.Now().Add(time.Hour),
				}
			},
			wantErr: model.ErrTokenMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			userID := uuid.New()
			presented := "refresh-token"

			svc, manager, store, _ := newTestTokenService(t)

			manager.On("ParseRefreshToken", presented).Return(userID, "jti", nil).Once()
			store.On("GetByJTI", ctx, "jti").Return(tt.record(presented), nil).Once()

			_, _, err := svc.Refresh(ctx, presented)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTokenService_Refresh_ParseError(t *testing.T) {
	ctx := context.Background()

	svc, manager, _, _ := newTestTokenService(t)

	manager.On("ParseRefreshToken", "garbage").Return(uuid.Nil, "", assert.AnError).Once()

	_, _, err := svc.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestTokenService_Refresh_UnknownJTI(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	svc, manager, store, _ := newTestTokenService(t)

	manager.On("ParseRefreshToken", "refresh").Return(userID, "jti", nil).Once()
	store.On("GetByJTI", ctx, "jti").Return(model.RefreshToken{}, model.ErrNotFound).Once()

	_, _, err := svc.Refresh(ctx, "refresh")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestTokenService_RevokeByToken(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("owner revokes", func(t *testing.T) {
		svc, manager, store, _ := newTestTokenService(t)

		manager.On("ParseRefreshToken", "refresh").Return(userID, "jti", nil).Once()
		store.On("RevokeByJTI", ctx, "jti").Return(nil).Once()

		require.NoError(t, svc.RevokeByToken(ctx, userID, "refresh"))
	})

	t.Run("already revoked is not an error", func(t *testing.T) {
		svc, manager, store, _ := newTestTokenService(t)

		manager.On("ParseRefreshToken", "refresh").Return(userID, "jti", nil).Once()
		store.On("RevokeByJTI", ctx, "jti").Return(model.ErrTokenRevoked).Once()

		require.NoError(t, svc.RevokeByToken(ctx, userID, "refresh"))
	})

	t.Run("foreign token", func(t *testing.T) {
		svc, manager, _, _ := newTestTokenService(t)

		manager.On("ParseRefreshToken", "refresh").Return(uuid.New(), "jti", nil).Once()

		require.ErrorIs(t, svc.RevokeByToken(ctx, userID, "refresh"), model.ErrTokenMismatch)
	})
}

func TestTokenService_Authenticate(t *testing.T) {
	ctx := context.Background()
	claims := model.AccessClaims{UserID: uuid.New(), Email: "a@b.c"}

	svc, manager, _, _ := newTestTokenService(t)

	manager.On("ParseAccessToken", "access").Return(claims, nil).Once()

	got, err := svc.Authenticate(ctx, "access")
	require.NoError(t, err)
	assert.Equal(t, claims, got)
}

func TestTokenService_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	svc, _, store, _ := newTestTokenService(t)
	svc.now = func() time.Time { return now }

	store.On("DeleteExpired", ctx, now).Return(int64(3), nil).Once()

	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
