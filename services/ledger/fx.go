package ledger

import (
	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

var Module = fx.Module("ledger.service",
	fx.Provide(NewService),
)

// Health registers the ledger store check as the gRPC health service.
var Health = fx.Module("ledger.health",
	fx.Invoke(registerHealthServer),
)

func registerHealthServer(server *grpc.Server, service *Service) {
	grpc_health_v1.RegisterHealthServer(server, service)
}
