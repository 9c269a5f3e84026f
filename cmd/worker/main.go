package main

import (
	"log"

	"smallbiznis-trustescrow/pkg/config"
	"smallbiznis-trustescrow/pkg/db"
	"smallbiznis-trustescrow/pkg/gen"
	"smallbiznis-trustescrow/pkg/hashistack/secretmanager"
	"smallbiznis-trustescrow/pkg/logger"
	"smallbiznis-trustescrow/pkg/otelcol"
	"smallbiznis-trustescrow/pkg/profiling"
	"smallbiznis-trustescrow/pkg/task"
	"smallbiznis-trustescrow/services/ledger"
	"smallbiznis-trustescrow/services/trustscore"
	"smallbiznis-trustescrow/services/user"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// The worker consumes trust:recalculate tasks enqueued by escrow transitions.
func main() {
	opts := []fx.Option{
		secretmanager.Options(),
		config.Options(),
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		gen.Module,
		user.Module,
		ledger.Module,
		trustscore.Module,
		task.Server,
		trustscore.Worker,
		fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}
