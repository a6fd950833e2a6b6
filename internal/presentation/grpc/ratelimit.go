package grpc

import (
	"context"
	"net"
	"sync"

	"golang.org/x/time/rate"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/hennyhux/changsheng/pkg/auth"
)

// RateLimit caps calls per caller. A caller is the token subject when the
// call is authenticated and the remote host otherwise. Zero RPS disables it.
type RateLimit struct {
	RPS   float64
	Burst int
}

type callerLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newCallerLimiter(cfg RateLimit) *callerLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(cfg.RPS) + 1
	}
	return &callerLimiter{
		limit:    rate.Limit(cfg.RPS),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *callerLimiter) allow(caller string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[caller]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[caller] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func callerKey(ctx context.Context) string {
	if claims, ok := auth.ClaimsFromContext(ctx); ok {
		return "operator:" + claims.Operator()
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		host, _, err := net.SplitHostPort(p.Addr.String())
		if err != nil {
			return "peer:" + p.Addr.String()
		}
		return "peer:" + host
	}
	return "unknown"
}

func rateLimitInterceptor(l *callerLimiter, skipMethods []string) grpclib.UnaryServerInterceptor {
	skip := make(map[string]bool, len(skipMethods))
	for _, m := range skipMethods {
		skip[m] = true
	}
	return func(ctx context.Context, req interface{}, info *grpclib.UnaryServerInfo, handler grpclib.UnaryHandler) (interface{}, error) {
		if !skip[info.FullMethod] && !l.allow(callerKey(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}
