package grpc

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const fallbackTimeout = 10 * time.Second

// UnaryInterceptors is the server chain. A panicking handler answers Internal instead of taking
// the process down, and calls without a client deadline get timeout.
func UnaryInterceptors(log *slog.Logger, timeout time.Duration) grpc.ServerOption {
	if log == nil {
		log = slog.Default()
	}
	return grpc.ChainUnaryInterceptor(recoverPanics(log), boundDeadline(timeout))
}

func boundDeadline(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = fallbackTimeout
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return handler(ctx, req)
	}
}

func recoverPanics(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(ctx, "rpc panicked",
					slog.String("rpc", info.FullMethod),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
