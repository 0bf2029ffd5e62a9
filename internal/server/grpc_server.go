package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/matcha/internal/config"
)

// PublicMethods bypass authentication.
var PublicMethods = []string{
	healthpb.Health_Check_FullMethodName,
	healthpb.Health_Watch_FullMethodName,
}

// NewGRPCServer builds the API server with recovery and logging in front of
// the given interceptors (auth), and registers all provided services.
func NewGRPCServer(logger *slog.Logger, interceptors []grpc.UnaryServerInterceptor, registrars ...Registrar) *grpc.Server {
	chain := append([]grpc.UnaryServerInterceptor{
		RecoveryInterceptor(logger),
		LoggingInterceptor(logger),
	}, interceptors...)

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(chain...))

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	healthpb.RegisterHealthServer(grpcServer, health.NewServer())

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return grpcServer
}

// StartGRPCServer serves until ctx is done, then stops gracefully.
func StartGRPCServer(ctx context.Context, cfg *config.Config, grpcServer *grpc.Server) error {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return Serve(ctx, grpcServer, lis)
}

// Serve runs grpcServer on lis until ctx is done.
func Serve(ctx context.Context, grpcServer *grpc.Server, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- grpcServer.Serve(lis) }()

	select {
	case <-ctx.Done():
		grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
