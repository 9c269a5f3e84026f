package main

import (
	"log"

	"smallbiznis-trustescrow/pkg/config"
	"smallbiznis-trustescrow/pkg/db"
	"smallbiznis-trustescrow/pkg/gen"
	"smallbiznis-trustescrow/pkg/hashistack/secretmanager"
	"smallbiznis-trustescrow/pkg/httpapi"
	"smallbiznis-trustescrow/pkg/logger"
	"smallbiznis-trustescrow/pkg/mirror"
	"smallbiznis-trustescrow/pkg/otelcol"
	"smallbiznis-trustescrow/pkg/payment"
	"smallbiznis-trustescrow/pkg/profiling"
	"smallbiznis-trustescrow/pkg/redis"
	"smallbiznis-trustescrow/pkg/server"
	"smallbiznis-trustescrow/pkg/task"
	"smallbiznis-trustescrow/services/dispute"
	"smallbiznis-trustescrow/services/escrow"
	"smallbiznis-trustescrow/services/ledger"
	"smallbiznis-trustescrow/services/risk"
	"smallbiznis-trustescrow/services/trustscore"
	"smallbiznis-trustescrow/services/user"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// appOptions assembles the engine host. It carries no escrow transport;
// embedding services call services/escrow directly.
func appOptions() []fx.Option {
	return []fx.Option{
		secretmanager.Options(),
		config.Options(),
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		gen.Module,
		task.Client,
		mirror.Module,
		payment.Module,
		user.Module,
		ledger.Module,
		ledger.Health,
		risk.Module,
		dispute.Module,
		escrow.Module,
		trustscore.Module,
		server.ProvideGRPCServer,
		server.ProvideHTTPServer,
		httpapi.Module,
		fx.Invoke(engineReady),
		fxLogger,
	}
}

func main() {
	opts := appOptions()
	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

var fxLogger = fx.WithLogger(func() fxevent.Logger {
	return fxevent.NopLogger
})

func engineReady(cfg *config.Config, _ *escrow.Service, _ *trustscore.Service) {
	zap.L().Info("trust and escrow engine ready",
		zap.String("policy_version", cfg.Policy.Version),
		zap.Int32("fee_bps", cfg.Policy.Escrow.FeeBps),
	)
}
