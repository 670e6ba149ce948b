// Package health drives the standard gRPC health service from dependency
// checks.
package health

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/taskhub-server/internal/logger"
)

// ServiceName is the health service name reported alongside the overall
// server status.
const ServiceName = "taskhub.API"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Reporter periodically pings the database and publishes the result.
type Reporter struct {
	server   *health.Server
	db       Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger
}

func NewReporter(server *health.Server, db Pinger, interval time.Duration, logger *logger.Logger) *Reporter {
	timeout := interval / 2
	if timeout <= 0 || timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	return &Reporter{
		server:   server,
		db:       db,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Run checks once immediately and then on every interval until ctx is done,
// after which every service is reported NOT_SERVING.
func (r *Reporter) Run(ctx context.Context) {
	r.Check(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.server.Shutdown()
			return
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}

// Check pings the database once and updates the serving status.
func (r *Reporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := r.db.Ping(pingCtx); err != nil {
		r.logger.Warn("Health reporter: database ping failed", "error", err.Error())
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	r.server.SetServingStatus("", status)
	r.server.SetServingStatus(ServiceName, status)

	return status
}
