package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/hennyhux/changsheng/pkg/auth"
	"github.com/hennyhux/changsheng/pkg/tlsutil"
)

var healthMethods = []string{
	"/grpc.health.v1.Health/Check",
	"/grpc.health.v1.Health/Watch",
}

// RolePolicy lets clerks run day-to-day billing, reserves destructive
// corrections for managers, and gives auditors read access only.
func RolePolicy() auth.MethodRoles {
	writers := []string{auth.RoleClerk, auth.RoleManager}
	managers := []string{auth.RoleManager}
	return auth.MethodRoles{
		Methods: map[string][]string{
			MethodCreateContract:        writers,
			MethodUpdateContractRate:    writers,
			MethodSetContractStatus:     writers,
			MethodGenerateInvoices:      writers,
			MethodGenerateAllInvoices:   writers,
			MethodRecordPayment:         writers,
			MethodResetContractPayments: managers,
			MethodBackfillRate:          managers,
		},
		Default: []string{auth.RoleClerk, auth.RoleManager, auth.RoleAuditor},
	}
}

// ServerOptions configures NewServer. A nil JWT disables authentication.
type ServerOptions struct {
	JWT        *auth.JWTService
	TLS        tlsutil.Files
	RateLimit  RateLimit
	Reflection bool
}

// Server wraps a gRPC server with the billing handler registered.
type Server struct {
	gs     *grpclib.Server
	health *health.Server
	logger *slog.Logger
}

func NewServer(handler BillingServiceServer, logger *slog.Logger, opts ServerOptions) (*Server, error) {
	interceptors := []grpclib.UnaryServerInterceptor{loggingInterceptor(logger)}
	if opts.JWT != nil {
		interceptors = append(interceptors,
			auth.UnaryAuthInterceptor(opts.JWT, healthMethods),
			auth.UnaryRoleInterceptor(RolePolicy(), healthMethods),
		)
	} else {
		logger.Warn("gRPC authentication disabled")
	}
	if opts.RateLimit.RPS > 0 {
		interceptors = append(interceptors, rateLimitInterceptor(newCallerLimiter(opts.RateLimit), healthMethods))
	}

	serverOpts := []grpclib.ServerOption{grpclib.ChainUnaryInterceptor(interceptors...)}

	if opts.TLS.Cert != "" && opts.TLS.Key != "" {
		creds, err := tlsutil.ServerCredentials(opts.TLS)
		if err != nil {
			return nil, err
		}
		serverOpts = append(serverOpts, grpclib.Creds(creds))
		logger.Info("gRPC TLS enabled", "cert", opts.TLS.Cert, "mtls", opts.TLS.ClientCA != "")
	} else {
		logger.Info("gRPC TLS not configured, running without TLS")
	}

	gs := grpclib.NewServer(serverOpts...)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	if opts.Reflection {
		reflection.Register(gs)
	}

	RegisterBillingServiceServer(gs, handler)

	return &Server{gs: gs, health: healthSrv, logger: logger}, nil
}

// Serve listens on addr and blocks until the server stops.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(lis)
}

func (s *Server) ServeListener(lis net.Listener) error {
	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.gs.Serve(lis)
}

// GracefulStop marks the service not serving, then drains in-flight calls.
func (s *Server) GracefulStop() {
	s.logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.gs.GracefulStop()
}

func loggingInterceptor(logger *slog.Logger) grpclib.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpclib.UnaryServerInfo, handler grpclib.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		attrs := []any{
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		}
		if claims, ok := auth.ClaimsFromContext(ctx); ok {
			attrs = append(attrs, "operator", claims.Operator())
		}
		if err != nil {
			logger.WarnContext(ctx, "rpc failed", append(attrs, "error", err)...)
		} else {
			logger.DebugContext(ctx, "rpc", attrs...)
		}
		return resp, err
	}
}
