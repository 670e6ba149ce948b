// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is used by services and HTTP middleware to report events.
type Recorder interface {
	RecordAuth(op string, success bool)
	RecordAvatar(op string, result string)
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Collector records metrics into a Prometheus registry.
type Collector struct {
	auth        *prometheus.CounterVec
	avatar      *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_auth_operations_total",
			Help: "Authentication operations by kind and outcome.",
		}, []string{"op", "success"}),
		avatar: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_avatar_operations_total",
			Help: "Avatar uploads and deletions by outcome.",
		}, []string{"op", "result"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(c.auth, c.avatar, c.httpLatency)

	return c
}

func (c *Collector) RecordAuth(op string, success bool) {
	c.auth.WithLabelValues(op, strconv.FormatBool(success)).Inc()
}

func (c *Collector) RecordAvatar(op string, result string) {
	c.avatar.WithLabelValues(op, result).Inc()
}

func (c *Collector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordAuth(string, bool)                                {}
func (Noop) RecordAvatar(string, string)                            {}
func (Noop) ObserveHTTPRequest(string, string, int, time.Duration) {}
