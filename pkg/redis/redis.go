package redis

import (
	"context"
	"fmt"
	"time"

	"smallbiznis-trustescrow/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("redis",
	fx.Provide(New),
)

var (
	pingAttempts = 5
	pingBackoff  = 3 * time.Second
)

func New(lc fx.Lifecycle, c *config.Config) (*redis.Client, error) {
	zapLog := zap.L().With(
		zap.String("addr", c.Redis.Addr),
		zap.Int("db", c.Redis.DB),
		zap.Int("pool_size", c.Redis.PoolSize),
	)

	rdb := redis.NewClient(&redis.Options{
		Addr:        c.Redis.Addr,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		PoolSize:    c.Redis.PoolSize,
		PoolTimeout: c.Redis.PoolTimeout,
	})

	var err error
	for i := 0; i < pingAttempts; i++ {
		if err = rdb.Ping(context.Background()).Err(); err == nil {
			break
		}
		zapLog.Warn("[Redis] Redis not ready, retrying", zap.Int("retry", i+1), zap.Duration("backoff", pingBackoff), zap.Error(err))
		time.Sleep(pingBackoff)
	}
	if err != nil {
		_ = rdb.Close()
		zapLog.Warn("[Redis] giving up on Redis", zap.Int("attempts", pingAttempts), zap.Error(err))
		return nil, fmt.Errorf("redis %s unreachable after %d attempts: %w", c.Redis.Addr, pingAttempts, err)
	}

	zapLog.Info("[Redis] Connected to Redis")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})

	return rdb, nil
}
