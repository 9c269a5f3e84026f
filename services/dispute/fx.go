package dispute

import "go.uber.org/fx"

var Module = fx.Module("dispute.resolver",
	fx.Provide(NewResolver),
)
