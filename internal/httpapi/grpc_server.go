package httpapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// HealthServer exposes the standard gRPC health protocol backed by the
// same readiness probe as /readyz, for probes that speak gRPC instead
// of HTTP.
type HealthServer struct {
	healthpb.UnimplementedHealthServer

	probe ReadyProbe
}

// NewGRPCServer builds a grpc.Server with the health service registered.
func NewGRPCServer(rp ReadyProbe) *grpc.Server {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, &HealthServer{probe: rp})
	return srv
}

func (h *HealthServer) Check(ctx context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if err := h.probe.Check(ctx); err != nil {
		return &healthpb.HealthCheckResponse{
			Status: healthpb.HealthCheckResponse_NOT_SERVING,
		}, nil
	}
	return &healthpb.HealthCheckResponse{
		Status: healthpb.HealthCheckResponse_SERVING,
	}, nil
}

func (h *HealthServer) Watch(_ *healthpb.HealthCheckRequest, _ healthpb.Health_WatchServer) error {
	return status.Error(codes.Unimplemented, "health watch is not supported")
}
