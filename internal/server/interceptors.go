package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Bearer token failures, shared by the HTTP and gRPC surfaces.
var (
	errNoCredentials = errors.New("missing authorization header")
	errBadScheme     = errors.New("invalid authorization scheme")
	errBadToken      = errors.New("invalid token")
)

// checkBearer validates an Authorization header value against token.
func checkBearer(header, token string) error {
	if header == "" {
		return errNoCredentials
	}
	provided, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return errBadScheme
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
		return errBadToken
	}
	return nil
}

// grpcAuthExempt reports whether a method is reachable without a token.
// Probes must not need credentials.
func grpcAuthExempt(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/grpc.health.v1.Health/")
}

func authorizeGRPC(ctx context.Context, token string) error {
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}
	}
	if err := checkBearer(header, token); err != nil {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	return nil
}

// unaryAuth requires a bearer token on every unary RPC except health
// checks. An empty token disables auth.
func unaryAuth(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if token != "" && !grpcAuthExempt(info.FullMethod) {
			if err := authorizeGRPC(ctx, token); err != nil {
				return nil, err
			}
		}
		return handler(ctx, req)
	}
}

// streamAuth is unaryAuth for streams (reflection, health Watch).
func streamAuth(token string) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if token != "" && !grpcAuthExempt(info.FullMethod) {
			if err := authorizeGRPC(ss.Context(), token); err != nil {
				return err
			}
		}
		return handler(srv, ss)
	}
}

// unaryLogging logs failed RPCs at error level and the rest at debug, since
// health probes arrive every few seconds.
func unaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Error("rpc failed", "method", info.FullMethod, "duration", time.Since(start),
				"code", status.Code(err), "err", err)
		} else {
			logger.Debug("rpc completed", "method", info.FullMethod, "duration", time.Since(start))
		}
		return resp, err
	}
}

// recovered converts a panic value into codes.Internal after logging it.
func recovered(logger *slog.Logger, method string, r any) error {
	logger.Error("panic recovered in gRPC handler",
		"method", method, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	return status.Error(codes.Internal, "internal server error")
}

func unaryRecovery(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(logger, info.FullMethod, r)
			}
		}()
		return handler(ctx, req)
	}
}

func streamRecovery(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(logger, info.FullMethod, r)
			}
		}()
		return handler(srv, ss)
	}
}

// AuthMiddleware requires "Authorization: Bearer <token>" on every request
// except GET /v1/health. An empty token disables auth.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}
		if err := checkBearer(r.Header.Get("Authorization"), token); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
