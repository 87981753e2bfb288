// Package observability holds the ops HTTP server and the gRPC
// interceptors that feed metrics and logs.
package observability

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voice-order-service/internal/observability/metrics"
)

// UnaryServerInterceptor counts and logs unary calls. A panicking handler
// is turned into codes.Internal.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Str("method", info.FullMethod).
					Msg("gRPC handler panicked")
				err = status.Errorf(codes.Internal, "internal error")
			}
			observe(m, log.Debug(), info.FullMethod, start, err)
		}()
		return handler(ctx, req)
	}
}

// StreamServerInterceptor counts and logs streaming calls once they end.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		observe(m, log.Info(), info.FullMethod, start, err)
		return err
	}
}

func observe(m *metrics.Metrics, ev *zerolog.Event, method string, start time.Time, err error) {
	code := status.Code(err)
	m.RecordGRPCCall(method, code.String())
	if code != codes.OK && code != codes.InvalidArgument && code != codes.NotFound {
		ev = log.Warn().Err(err)
	}
	ev.Str("method", method).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Msg("gRPC call")
}
