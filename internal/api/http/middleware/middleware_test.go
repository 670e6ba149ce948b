package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpctx "github.com/dtroode/taskhub-server/internal/api/http/context"
	"github.com/dtroode/taskhub-server/internal/metrics"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/testutil"
)

type tokenServiceFunc func(ctx context.Context, token string) (model.AccessClaims, error)

func (f tokenServiceFunc) Authenticate(ctx context.Context, token string) (model.AccessClaims, error) {
	return f(ctx, token)
}

func TestAuthenticate_Handle(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	tokens := tokenServiceFunc(func(_ context.Context, token string) (model.AccessClaims, error) {
		switch token {
		case "good":
			return model.AccessClaims{UserID: userID, Email: "a@b.c"}, nil
		case "nil-user":
			return model.AccessClaims{}, nil
		default:
			return model.AccessClaims{}, errors.New("bad token")
		}
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalled bool
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "nil user id", header: "Bearer nil-user", wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK, wantCalled: true},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctxMgr := httpctx.NewManager()
			m := NewAuthenticate(tokens, ctxMgr, testutil.MakeNoopLogger())

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				got, ok := ctxMgr.GetUserIDFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, userID, got)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			m.Handle(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}

func TestRateLimiter_Handle(t *testing.T) {
	ctxMgr := httpctx.NewManager()
	rl := NewRateLimiter(RateLimiterConfig{PerMinute: 1, Burst: 2}, ctxMgr, testutil.MakeNoopLogger())
	t.Cleanup(rl.Stop)

	handler := rl.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(userID uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", nil)
		req = req.WithContext(ctxMgr.SetUserToContext(req.Context(), model.AccessClaims{UserID: userID}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	alice, bob := uuid.New(), uuid.New()

	assert.Equal(t, http.StatusOK, do(alice).Code)
	assert.Equal(t, http.StatusOK, do(alice).Code)

	limited := do(alice)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests"}`, limited.Body.String())

	assert.Equal(t, http.StatusOK, do(bob).Code)
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	ctxMgr := httpctx.NewManager()
	rl := NewRateLimiter(RateLimiterConfig{PerMinute: 10, Burst: 1, CleanupInterval: time.Hour}, ctxMgr, testutil.MakeNoopLogger())
	t.Cleanup(rl.Stop)

	rl.limiterFor(uuid.New())
	require.Equal(t, 1, rl.Len())

	rl.cleanup(time.Now().Add(3 * time.Hour))
	assert.Equal(t, 0, rl.Len())
}

func TestRateLimiter_RequiresUser(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{PerMinute: 10, Burst: 1}, httpctx.NewManager(), testutil.MakeNoopLogger())
	t.Cleanup(rl.Stop)

	rec := httptest.NewRecorder()
	rl.Handle(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := NewCORS("https://app.example")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("preflight", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/profile", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("passes through", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile", nil))

		assert.Equal(t, http.StatusTeapot, rec.Code)
	})
}

type recordingMetrics struct {
	metrics.Noop
	method string
	route  string
	status int
}

func (r *recordingMetrics) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	r.method, r.route, r.status = method, route, status
}

func TestLogging_Handle(t *testing.T) {
	t.Parallel()

	rec := &recordingMetrics{}
	lg := NewLogging(testutil.MakeNoopLogger(), rec)

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name:       "implicit ok",
			handler:    func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "server error",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		lg.Handle(tt.handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, tt.wantStatus, w.Code, tt.name)
		assert.Equal(t, tt.wantStatus, rec.status, tt.name)
		assert.Equal(t, "/healthz", rec.route, tt.name)
		assert.Equal(t, http.MethodGet, rec.method, tt.name)
	}
}
