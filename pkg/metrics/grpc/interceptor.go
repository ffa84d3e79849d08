package grpc

import (
	"context"
	"time"

	"github.com/RigelNana/arkpaper/pkg/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor 为 gRPC 服务添加 Prometheus 指标
func UnaryServerInterceptor(serviceName string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		metrics.RecordRequest(serviceName, info.FullMethod, statusLabel(err), time.Since(start))
		return resp, err
	}
}

// StreamServerInterceptor 为 gRPC 流添加 Prometheus 指标
func StreamServerInterceptor(serviceName string) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		metrics.RecordRequest(serviceName, info.FullMethod, statusLabel(err), time.Since(start))
		return err
	}
}

func statusLabel(err error) string {
	if err == nil {
		return "OK"
	}
	return status.Code(err).String()
}
