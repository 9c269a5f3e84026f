package payment

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the in-memory sandbox as the Port. Deployments that talk
// to a real gateway replace it with fx.Decorate.
var Module = fx.Module("payment",
	fx.Provide(provideSandbox),
)

func provideSandbox() Port {
	zap.L().Warn("payment port is the in-memory sandbox")
	return NewSandbox()
}
