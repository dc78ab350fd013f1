package utilities

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// RegisterHealthServer registers the gRPC health check service.
func RegisterHealthServer(grpcServer *grpc.Server) *health.Server {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	return healthServer
}

// WatchHealth runs check every interval and mirrors the outcome into the overall
// serving status until ctx is done.
func WatchHealth(
	ctx context.Context,
	logger *zerolog.Logger,
	healthServer *health.Server,
	interval time.Duration,
	check func(ctx context.Context) error,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		UpdateHealth(ctx, logger, healthServer, check)

		select {
		case <-ctx.Done():
			healthServer.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

// UpdateHealth runs check once and sets the overall serving status accordingly.
func UpdateHealth(
	ctx context.Context,
	logger *zerolog.Logger,
	healthServer *health.Server,
	check func(ctx context.Context) error,
) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err := check(ctx); err != nil {
		logger.Warn().Err(err).Msg("health check failed")
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}

	healthServer.SetServingStatus("", status)
}
