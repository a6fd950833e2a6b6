package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type claimsKey struct{}

func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims attached by UnaryAuthInterceptor.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}

type methodSet map[string]bool

func newMethodSet(methods []string) methodSet {
	set := make(methodSet, len(methods))
	for _, m := range methods {
		set[m] = true
	}
	return set
}

func bearerToken(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 || values[0] == "" {
		return "", status.Error(codes.Unauthenticated, "authorization required")
	}
	scheme, token, found := strings.Cut(values[0], " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", status.Error(codes.Unauthenticated, "authorization must be a bearer token")
	}
	return token, nil
}

// UnaryAuthInterceptor validates the bearer token and attaches its claims.
func UnaryAuthInterceptor(jwtService *JWTService, skipMethods []string) grpc.UnaryServerInterceptor {
	open := newMethodSet(skipMethods)
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if open[info.FullMethod] {
			return handler(ctx, req)
		}
		token, err := bearerToken(ctx)
		if err != nil {
			return nil, err
		}
		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "rejected token: %v", err)
		}
		return handler(ContextWithClaims(ctx, claims), req)
	}
}

// MethodRoles maps full gRPC method names to the roles allowed to call them.
// Methods not listed fall back to Default.
type MethodRoles struct {
	Methods map[string][]string
	Default []string
}

func (p MethodRoles) allowed(method string) []string {
	if roles, ok := p.Methods[method]; ok {
		return roles
	}
	return p.Default
}

// UnaryRoleInterceptor runs after UnaryAuthInterceptor and rejects operators
// holding none of the roles the method allows.
func UnaryRoleInterceptor(policy MethodRoles, skipMethods []string) grpc.UnaryServerInterceptor {
	open := newMethodSet(skipMethods)
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if open[info.FullMethod] {
			return handler(ctx, req)
		}
		claims, ok := ClaimsFromContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "no operator on the call")
		}
		if roles := policy.allowed(info.FullMethod); !claims.HasAnyRole(roles...) {
			return nil, status.Errorf(codes.PermissionDenied, "operator %s needs one of %v", claims.Operator(), roles)
		}
		return handler(ctx, req)
	}
}
