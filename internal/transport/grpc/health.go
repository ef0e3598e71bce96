// Package grpc serves the cart health over the standard gRPC health protocol.
package grpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/gomarketplace/internal/cart"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the cart.
const ServiceName = "gomarketplace.cart"

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health keeps the gRPC health status in line with the cart and its storage.
type Health struct {
	server  *health.Server
	store   *cart.Store
	pinger  Pinger
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealth creates a health service reporting NOT_SERVING until the first successful check.
func NewHealth(store *cart.Store, pinger Pinger, timeout time.Duration, logger *slog.Logger) *Health {
	h := &Health{
		server:  health.NewServer(),
		store:   store,
		pinger:  pinger,
		timeout: timeout,
		logger:  logger.With("component", "grpc-health"),
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register adds the health service to s.
func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Check probes the cart and storage once and publishes the result.
func (h *Health) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING

	select {
	case <-h.store.Ready():
	default:
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	if status == healthpb.HealthCheckResponse_SERVING {
		pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := h.pinger.Ping(pingCtx)
		cancel()
		if err != nil {
			h.logger.WarnContext(ctx, "Storage ping failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	h.set(status)
	return status
}

// Run checks every interval until ctx ends, then reports NOT_SERVING for good.
func (h *Health) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

func (h *Health) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}
