package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordAuth(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuth("signin", true)
	c.RecordAuth("signin", true)
	c.RecordAuth("signin", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.auth.WithLabelValues("signin", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.auth.WithLabelValues("signin", "false")))
}

func TestCollector_RecordAvatar(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAvatar("upload", "ok")
	c.RecordAvatar("upload", "too_large")
	c.RecordAvatar("delete", "ok")

	assert.Equal(t, float64(1), testutil.ToFloat64(c.avatar.WithLabelValues("upload", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.avatar.WithLabelValues("upload", "too_large")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.avatar.WithLabelValues("delete", "ok")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveHTTPRequest(http.MethodPost, "/api/profile/avatar", http.StatusOK, 20*time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "taskhub_http_request_duration_seconds")
	assert.Contains(t, string(body), `route="/api/profile/avatar"`)
}
