package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/notify"
	"github.com/dtroode/taskhub-server/internal/testutil"
)

type fakeAuthServer struct {
	userID uuid.UUID
	ttl    time.Duration

	mu            sync.Mutex
	issued        int
	validRefresh  map[string]bool
	refreshCalls  atomic.Int32
	logoutStatus  int
	logoutBodies  []map[string]string
	rejectRefresh bool
	email         string

	// set before the first request; when non-nil a refresh grant reports on
	// refreshEntered and blocks until refreshHold is closed
	refreshEntered chan struct{}
	refreshHold    chan struct{}
}

func newFakeAuthServer(t *testing.T) (*fakeAuthServer, *httptest.Server) {
	f := &fakeAuthServer{
		userID:       uuid.New(),
		ttl:          time.Hour,
		validRefresh: make(map[string]bool),
		logoutStatus: http.StatusNoContent,
		email:        "user@example.com",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signup", f.token)
	mux.HandleFunc("POST /api/auth/token", f.token)
	mux.HandleFunc("POST /api/auth/logout", f.logout)
	mux.HandleFunc("GET /api/auth/user", f.user)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return f, srv
}

func (f *fakeAuthServer) issue() model.Session {
	f.issued++
	refresh := "refresh-" + string(rune('a'+f.issued))
	f.validRefresh[refresh] = true

	return model.Session{
		AccessToken:  "access-" + string(rune('a'+f.issued)),
		TokenType:    "bearer",
		ExpiresIn:    int64(f.ttl.Seconds()),
		ExpiresAt:    time.Now().Add(f.ttl).Unix(),
		RefreshToken: refresh,
		User:         model.Identity{ID: f.userID, Email: f.email},
	}
}

func (f *fakeAuthServer) token(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") == "refresh_token" && f.refreshHold != nil {
		f.refreshEntered <- struct{}{}
		<-f.refreshHold
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	if r.URL.Query().Get("grant_type") == "refresh_token" {
		f.refreshCalls.Add(1)
		presented, _ := body["refresh_token"].(string)
		if f.rejectRefresh || !f.validRefresh[presented] {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid refresh token"})
			return
		}
		delete(f.validRefresh, presented)
	} else if body["password"] == "wrong" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid login credentials"})
		return
	}

	writeJSON(w, http.StatusOK, f.issue())
}

func (f *fakeAuthServer) logout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.logoutBodies = append(f.logoutBodies, body)

	if f.logoutStatus != http.StatusNoContent {
		writeJSON(w, f.logoutStatus, map[string]string{"error": "logout exploded"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAuthServer) user(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	writeJSON(w, http.StatusOK, model.Identity{ID: f.userID, Email: f.email, Metadata: map[string]any{"plan": "pro"}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nextEvent(t *testing.T, sub *notify.Subscription[model.AuthEvent]) model.AuthEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for auth event")
		return model.AuthEvent{}
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	c := NewClient(srv.URL, srv.Client(), testutil.MakeNoopLogger(), opts...)
	t.Cleanup(c.Close)
	return c
}

func TestClient_SignInPublishesSignedIn(t *testing.T) {
	f, srv := newFakeAuthServer(t)
	c := newTestClient(t, srv)
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	session, err := c.SignInWithPassword(context.Background(), model.Credentials{Email: f.email, Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, f.userID, session.User.ID)

	ev := nextEvent(t, sub)
	assert.Equal(t, model.AuthEventSignedIn, ev.Type)
	require.NotNil(t, ev.Session)
	assert.Equal(t, session.AccessToken, ev.Session.AccessToken)

	got, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func TestClient_SignInRejected(t *testing.T) {
	_, srv := newFakeAuthServer(t)
	c := newTestClient(t, srv)

	_, err := c.SignInWithPassword(context.Background(), model.Credentials{Email: "a@b.c", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", err.Error())

	session, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestClient_GetSessionRefreshesNearExpiry(t *testing.T) {
	f, srv := newFakeAuthServer(t)
	f.ttl = 30 * time.Second
	c := newTestClient(t, srv, WithRefreshMargin(time.Minute))

	first, err := c.SignInWithPassword(context.Background(), model.Credentials{Email: f.email, Password: "password123"})
	require.NoError(t, err)

	sub := c.Subscribe()
	defer sub.Unsubscribe()

	got, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, got.RefreshToken)
	assert.Equal(t, model.AuthEventTokenRefreshed, nextEvent(t, sub).Type)
}

func TestClient_ConcurrentGetSessionRefreshesOnce(t *testing.T) {
	f, srv := newFakeAuthServer(t)
	f.ttl = 30 * time.Second
	c := newTestClient(t, srv, WithRefreshMargin(time.Minute))

	_, err := c.SignInWithPassword(context.Background(), model.Credentials{Email: f.email, Password: "password123"})
	require.NoError(t, err)

	// the refreshed session is also inside the margin, so only the first
	// caller for each refresh token may hit the server
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetSession(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	session, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session, "a consumed refresh token must never sign the client out")
}

func TestClient_RejectedRefreshSignsOut(t *testing.T) {
	f, srv := newFakeAuthServer(t)
	c := newTestClient(t, srv)

	_, err := c.SignInWithPassword(context.Background(), model.Credentials{Email: f.email, Password: "password123"})
	require.NoError(t, err)

	sub := c.Subscribe()
	defer sub.Unsubscribe()

	f.mu.Lock()
	f.rejectRefresh = true
	f.mu.Unlock()

	_, err = c.RefreshSession(context.Background())
	require.Error(t, err)

	ev := nextEvent(t, sub)
	assert.Equal(t, model.AuthEventSignedOut, ev.Type)
	assert.Nil(t, ev.Session)
}

func TestClient_RejectedStaleRefreshKeepsNewerSession(t *testing.T) {
	f, srv := newFakeAuthServer(t)
	f.refreshEntered = make(chan struct{}, 1)
	f.refreshHold = make(chan struct{})
	c := newTestClient(t, srv)

	first, err := c.SignInWithPassword(context.Background(), model.Credentials{Email: f.email, Password: "password123"})
	require.NoError(t, err)

	refreshErr := make(chan error, 1)
	go func() {
		_, err := c.RefreshSession(context.Background())
		refreshErr <- err
	}()

	select {
	case <-f.refreshEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never reached the server")
	}

	sub := c.Subscribe()
	defer sub.Unsubscribe()

	// a second sign-in lands while the refresh for the first session is in flight
	second, err := c.SignInWithPassword(context.Background(), model.Credentials{Email: f.email, Password: "password123"})
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	f.mu.Lock()
	f.rejectRefresh = true
	f.mu.Unlock()
	close(f.refreshHold)

	select {
	case err := <-refreshErr:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not return")
	}

	ev := nextEvent(t, sub)
	assert.Equal(t, model.AuthEventSignedIn, ev.Type)
	require.NotNil(t, ev.Session)
	assert.Equal(t, second.AccessToken, ev.Session.AccessToken)

	got, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got, "rejection of an old refresh token must not sign out a newer session")
	assert.Equal(t, second.RefreshToken, got.RefreshToken)

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected auth event %s", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClient_SignOutClearsEvenWhenServerFails(t *testing.T) {
	f, srv := newFakeAuthServer(t)
	c := newTestClient(t, srv)

	session, err := c.SignInWithPassword(context.Background(), model.Credentials{Email: f.email, Password: "password123"})
	require.NoError(t, err)

	sub := c.Subscribe()
	defer sub.Unsubscribe()

	f.mu.Lock()
	f.logoutStatus = http.StatusInternalServerError
	f.mu.Unlock()

	err = c.SignOut(context.Background())
	require.Error(t, err)
	assert.Equal(t, "logout exploded", err.Error())

	ev := nextEvent(t, sub)
	assert.Equal(t, model.AuthEventSignedOut, ev.Type)

	got, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)

	f.mu.Lock()
	require.Len(t, f.logoutBodies, 1)
	assert.Equal(t, session.RefreshToken, f.logoutBodies[0]["refresh_token"])
	f.mu.Unlock()
}

func TestClient_SignOutWithoutSessionIsNoop(t *testing.T) {
	f, srv := newFakeAuthServer(t)
	c := newTestClient(t, srv)

	require.NoError(t, c.SignOut(context.Background()))

	f.mu.Lock()
	assert.Empty(t, f.logoutBodies)
	f.mu.Unlock()
}

func TestClient_EventsArriveInEmissionOrder(t *testing.T) {
	f, srv := newFakeAuthServer(t)
	c := newTestClient(t, srv)
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	ctx := context.Background()
	_, err := c.SignInWithPassword(ctx, model.Credentials{Email: f.email, Password: "password123"})
	require.NoError(t, err)
	_, err = c.RefreshSession(ctx)
	require.NoError(t, err)
	require.NoError(t, c.SignOut(ctx))

	want := []model.AuthEventType{model.AuthEventSignedIn, model.AuthEventTokenRefreshed, model.AuthEventSignedOut}
	for _, w := range want {
		assert.Equal(t, w, nextEvent(t, sub).Type)
	}
}

func TestClient_GetUserPublishesUserUpdated(t *testing.T) {
	f, srv := newFakeAuthServer(t)
	c := newTestClient(t, srv)

	_, err := c.SignInWithPassword(context.Background(), model.Credentials{Email: f.email, Password: "password123"})
	require.NoError(t, err)

	sub := c.Subscribe()
	defer sub.Unsubscribe()

	user, err := c.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pro", user.Metadata["plan"])

	ev := nextEvent(t, sub)
	assert.Equal(t, model.AuthEventUserUpdated, ev.Type)
	assert.Equal(t, "pro", ev.Session.User.Metadata["plan"])
}

func TestClient_StartAutoRefresh(t *testing.T) {
	f, srv := newFakeAuthServer(t)
	f.ttl = 30 * time.Second
	c := newTestClient(t, srv, WithRefreshMargin(time.Minute))

	_, err := c.SignInWithPassword(context.Background(), model.Credentials{Email: f.email, Password: "password123"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartAutoRefresh(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return f.refreshCalls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}
