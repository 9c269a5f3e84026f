package server

import (
	"context"
	"testing"

	"smallbiznis-trustescrow/pkg/errutil"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorUnaryInterceptorMapsStatus(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{errutil.UnprocessableEntity("escrow is disputed, expected escrowed", nil), codes.FailedPrecondition},
		{errutil.Forbidden("transaction blocked by risk assessment", nil), codes.PermissionDenied},
		{errutil.BadGateway("payment capture failed", nil), codes.Unavailable},
		{errutil.Conflict("an active escrow already exists for this service", nil), codes.AlreadyExists},
	}
	for _, tc := range cases {
		_, err := ErrorUnaryInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
			return nil, tc.err
		})
		require.Equal(t, tc.code, status.Code(err))
	}
}

func TestErrorUnaryInterceptorPassesResponse(t *testing.T) {
	resp, err := ErrorUnaryInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", resp)
}
