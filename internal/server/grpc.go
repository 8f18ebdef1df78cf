package server

import (
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer returns a gRPC server exposing the standard health service
// (overall and HealthService) and reflection. When authToken is set, every
// method except health checks needs it as a bearer token.
func (s *Server) NewGRPCServer(authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			unaryRecovery(s.logger),
			unaryLogging(s.logger),
			unaryAuth(authToken),
		),
		grpc.ChainStreamInterceptor(
			streamRecovery(s.logger),
			streamAuth(authToken),
		),
	)
	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)
	return srv
}
