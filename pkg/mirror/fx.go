package mirror

import (
	"smallbiznis-trustescrow/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the redis stream mirror when MIRROR.ENABLE is set and the
// no-op mirror otherwise. It expects a *redis.Client when enabled.
var Module = fx.Module("mirror",
	fx.Provide(provide),
)

type params struct {
	fx.In
	Config *config.Config
	Redis  *redis.Client `optional:"true"`
}

func provide(p params) EscrowMirror {
	if !p.Config.Mirror.Enable || p.Redis == nil {
		return Nop{}
	}
	zap.L().Info("escrow mirror enabled", zap.String("stream", p.Config.Mirror.Stream))
	return NewRedisStream(p.Redis, p.Config.Mirror.Stream, p.Config.Mirror.MaxLen)
}
