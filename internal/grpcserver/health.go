// Package grpcserver exposes provider health over the standard gRPC health
// protocol.
//
// The overall service ("") is always SERVING while the process runs. Each
// registered provider gets its own service name whose status follows the
// outcome of the most recent aggregated search.
package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/ChristinaDay/updrift-sub001/internal/aggregator"
	"github.com/ChristinaDay/updrift-sub001/internal/provider"
)

const servicePrefix = "updrift.provider."

// ServiceName returns the health service name for a provider id.
func ServiceName(providerID string) string { return servicePrefix + providerID }

// Health tracks per-provider serving status.
type Health struct {
	hs *health.Server
}

// NewHealth marks the process and every provider in reg as SERVING.
func NewHealth(reg *provider.Registry) *Health {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, p := range reg.Providers() {
		hs.SetServingStatus(ServiceName(p.ID), healthpb.HealthCheckResponse_SERVING)
	}
	return &Health{hs: hs}
}

// Observe updates a provider's status from a search outcome. It has the
// shape aggregator.WithObserver expects.
func (h *Health) Observe(o aggregator.Outcome) {
	st := healthpb.HealthCheckResponse_SERVING
	if !o.OK {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.hs.SetServingStatus(ServiceName(o.Provider), st)
}

// Status reports the current status of service. Unknown services return
// SERVICE_UNKNOWN.
func (h *Health) Status(ctx context.Context, service string) healthpb.HealthCheckResponse_ServingStatus {
	resp, err := h.hs.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return healthpb.HealthCheckResponse_SERVICE_UNKNOWN
		}
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}

// Shutdown sets every service to NOT_SERVING so clients drain.
func (h *Health) Shutdown() { h.hs.Shutdown() }

// NewServer builds a gRPC server with the health service registered.
func NewServer(h *Health, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, h.hs)
	return srv
}
