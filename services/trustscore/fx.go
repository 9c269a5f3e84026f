package trustscore

import (
	"smallbiznis-trustescrow/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("trustscore.service",
	fx.Provide(NewService),
)

// Worker registers the recalculation handler on the asynq mux.
var Worker = fx.Module("trustscore.worker",
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.TrustRecalculate, svc.HandleRecalculate)
}
