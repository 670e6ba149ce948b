package context

import (
	stdctx "context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dtroode/taskhub-server/internal/model"
)

func TestManager_SetAndGetUser(t *testing.T) {
	m := NewManager()
	claims := model.AccessClaims{UserID: uuid.New(), Email: "a@b.c"}
	ctx := m.SetUserToContext(stdctx.Background(), claims)

	got, ok := m.GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims.UserID, got)

	gotClaims, ok := m.GetClaimsFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims, gotClaims)
}

func TestManager_GetUserID_NotFound(t *testing.T) {
	m := NewManager()
	_, ok := m.GetUserIDFromContext(stdctx.Background())
	assert.False(t, ok)
}

func TestManager_GetUserID_NilUser(t *testing.T) {
	m := NewManager()
	ctx := m.SetUserToContext(stdctx.Background(), model.AccessClaims{})

	_, ok := m.GetUserIDFromContext(ctx)
	assert.False(t, ok)
}
