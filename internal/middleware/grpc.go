package middleware

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"leasing-site-api/internal/auth"
	"leasing-site-api/internal/store"
)

// UnaryRateLimit limits the listed methods per peer IP.
func UnaryRateLimit(rl *RateLimiter, limited map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if !limited[info.FullMethod] {
			return next(ctx, req)
		}
		if !rl.Allow(peerIP(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, "too many requests")
		}
		return next(ctx, req)
	}
}

// peerIP drops the port so reconnecting does not mint a fresh bucket.
func peerIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// UnaryAdmin requires an admin bearer token on every method not listed in open.
func UnaryAdmin(tokens *auth.Tokens, admins AdminChecker, open map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if open[info.FullMethod] {
			return next(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		raw := ""
		if vals := md.Get("authorization"); len(vals) > 0 {
			raw = BearerToken(vals[0])
		}
		if raw == "" {
			return nil, status.Error(codes.Unauthenticated, "no token")
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "bad token")
		}
		isAdmin, err := admins.IsAdmin(ctx, claims.UserID())
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, status.Error(codes.Unauthenticated, "unknown user")
		case err != nil:
			return nil, status.Error(codes.Internal, "internal error")
		case !isAdmin:
			return nil, status.Error(codes.PermissionDenied, "admin only")
		}

		ctx = context.WithValue(ctx, UserIDKey, claims.UserID())
		return next(ctx, req)
	}
}
