package server

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/careersim/bff/internal/config"
)

// GRPCServer is the internal gRPC endpoint. It carries only the standard
// health service for orchestrator checks.
type GRPCServer struct {
	addr   string
	srv    *grpc.Server
	health *health.Server
}

// NewGRPCServer builds a gRPC server with the health service registered
func NewGRPCServer(cfg *config.Config) *GRPCServer {
	s := &GRPCServer{
		addr:   fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port),
		srv:    grpc.NewServer(),
		health: health.NewServer(),
	}

	healthpb.RegisterHealthServer(s.srv, s.health)

	// enable reflection for easier debugging with grpcurl
	reflection.Register(s.srv)
	return s
}

func (s *GRPCServer) Addr() string { return s.addr }

// SetServing flips the overall health status reported to probes.
func (s *GRPCServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// ListenAndServe listens on the configured address and blocks until Stop.
func (s *GRPCServer) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(lis)
}

func (s *GRPCServer) Serve(lis net.Listener) error {
	s.SetServing(true)
	return s.srv.Serve(lis)
}

// Stop marks the server NOT_SERVING and drains in-flight RPCs.
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
