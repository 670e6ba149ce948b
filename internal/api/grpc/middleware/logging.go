package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/taskhub-server/internal/logger"
)

// Logging is a unary interceptor that logs ops requests and results.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
// Health probes are logged at debug level.
func (l *Logging) HandleGRPC(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	statusCode := codes.OK
	if err != nil {
		if st, ok := status.FromError(err); ok {
			statusCode = st.Code()
		} else {
			statusCode = codes.Internal
		}
	}

	args := []any{
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", statusCode.String(),
	}

	switch {
	case err != nil:
		l.logger.Error("gRPC request failed", append(args, "error", err.Error())...)
	case isHealthProbe(info.FullMethod):
		l.logger.Debug("gRPC request completed", args...)
	default:
		l.logger.Info("gRPC request completed", args...)
	}

	return resp, err
}

func isHealthProbe(method string) bool {
	return method == "/grpc.health.v1.Health/Check"
}
