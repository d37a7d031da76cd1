package ops

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"leasing-site-api/internal/auth"
	"leasing-site-api/internal/middleware"
)

const (
	healthCheck = "/grpc.health.v1.Health/Check"
	healthList  = "/grpc.health.v1.Health/List"
)

type ServerOptions struct {
	Tokens  *auth.Tokens
	Admins  middleware.AdminChecker
	Limiter *middleware.RateLimiter
	Log     *zap.Logger
}

// NewGRPCServer wires the ops service and the standard health service behind
// the logging, rate limit and admin interceptors. Health checks stay open.
func NewGRPCServer(st Store, o ServerOptions) (*grpc.Server, *health.Server) {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Limiter == nil {
		o.Limiter = middleware.NewRateLimiter(5, 10)
	}
	open := map[string]bool{healthCheck: true, healthList: true}
	limited := map[string]bool{SetAdminMethod: true}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			unaryLogger(o.Log),
			middleware.UnaryRateLimit(o.Limiter, limited),
			middleware.UnaryAdmin(o.Tokens, o.Admins, open),
		),
	)
	RegisterOpsServer(srv, NewServer(st, o.Log))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

func unaryLogger(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
		}
		if err != nil {
			log.Warn("grpc request", fields...)
		} else {
			log.Info("grpc request", fields...)
		}
		return resp, err
	}
}
