package ledger

import (
	"context"
	"time"

	"github.com/gogo/status"
	"google.golang.org/grpc/codes"
	health "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the service name health clients may ask for explicitly.
const HealthServiceName = "trustescrow.ledger"

var watchInterval = 5 * time.Second

func (s *Service) servingStatus(ctx context.Context) health.HealthCheckResponse_ServingStatus {
	sqlDB, err := s.db.DB()
	if err != nil {
		return health.HealthCheckResponse_NOT_SERVING
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return health.HealthCheckResponse_NOT_SERVING
	}
	return health.HealthCheckResponse_SERVING
}

// Check reports SERVING while the trust event store answers pings.
func (s *Service) Check(ctx context.Context, req *health.HealthCheckRequest) (*health.HealthCheckResponse, error) {
	if req.GetService() != "" && req.GetService() != HealthServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}
	return &health.HealthCheckResponse{Status: s.servingStatus(ctx)}, nil
}

// Watch sends the current status and then every change until the stream ends.
func (s *Service) Watch(req *health.HealthCheckRequest, srv health.Health_WatchServer) error {
	if req.GetService() != "" && req.GetService() != HealthServiceName {
		return srv.Send(&health.HealthCheckResponse{Status: health.HealthCheckResponse_SERVICE_UNKNOWN})
	}

	ctx := srv.Context()
	last := health.HealthCheckResponse_UNKNOWN
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	for {
		if current := s.servingStatus(ctx); current != last {
			if err := srv.Send(&health.HealthCheckResponse{Status: current}); err != nil {
				return err
			}
			last = current
		}
		select {
		case <-ctx.Done():
			return status.Error(codes.Canceled, "stream has ended")
		case <-ticker.C:
		}
	}
}
