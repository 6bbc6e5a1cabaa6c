package handler

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CheckoutServiceName is the name reported by the gRPC health service.
const CheckoutServiceName = "checkout"

type GRPCHandler struct {
	health *health.Server
}

// NewGRPCHandler registers the health service on srv and marks checkout as serving.
func NewGRPCHandler(srv *grpc.Server) *GRPCHandler {
	h := &GRPCHandler{health: health.NewServer()}
	healthpb.RegisterHealthServer(srv, h.health)
	h.health.SetServingStatus(CheckoutServiceName, healthpb.HealthCheckResponse_SERVING)
	return h
}

// Drain reports NOT_SERVING for every service ahead of shutdown.
func (h *GRPCHandler) Drain() {
	h.health.Shutdown()
}
