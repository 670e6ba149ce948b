package middleware

import (
	"context"
	"testing"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/taskhub-server/internal/testutil"
)

func TestRecoveryOption(t *testing.T) {
	t.Parallel()

	interceptor := recovery.UnaryServerInterceptor(RecoveryOption(testutil.MakeNoopLogger()))
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/Panics"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})

	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
}
