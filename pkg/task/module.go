package task

import (
	"context"
	"fmt"

	"smallbiznis-trustescrow/pkg/config"
	"smallbiznis-trustescrow/pkg/observability"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// QueueTrust carries score recalculations. It is the only queue the worker
// consumes.
const QueueTrust = "trust"

const workerConcurrency = 4

var Client = fx.Module("asynq:client",
	fx.Provide(registerClient, NewEnqueuer),
)

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func registerClient(lc fx.Lifecycle, cfg *config.Config) (*asynq.Client, error) {
	client := asynq.NewClient(redisOpt(cfg))
	if err := client.Ping(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("asynq client %s: %w", cfg.Redis.Addr, err)
	}
	zap.L().Info("[Asynq] client connected", zap.String("addr", cfg.Redis.Addr))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

var Server = fx.Module("asynq:server",
	fx.Provide(registerServerMux),
	fx.Invoke(registerAsynqServer),
)

func registerServerMux() *asynq.ServeMux {
	return asynq.NewServeMux()
}

// onPermanentFailure runs once a task has exhausted its retries or was
// marked SkipRetry.
func onPermanentFailure(ctx context.Context, t *asynq.Task, err error) {
	observability.Metrics().ObserveTask(t.Type()+":dead", err)
	zap.L().Error("[Asynq] task permanently failed", zap.String("task_type", t.Type()), zap.ByteString("payload", t.Payload()), zap.Error(err))
}

func registerAsynqServer(lc fx.Lifecycle, cfg *config.Config, mux *asynq.ServeMux) {
	server := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency:    workerConcurrency,
		RetryDelayFunc: asynq.DefaultRetryDelayFunc,
		Queues:         map[string]int{QueueTrust: 1},
		ErrorHandler:   asynq.ErrorHandlerFunc(onPermanentFailure),
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := server.Start(mux); err != nil {
				return fmt.Errorf("start asynq worker: %w", err)
			}
			zap.L().Info("[Asynq] worker started", zap.String("queue", QueueTrust), zap.Int("concurrency", workerConcurrency))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			server.Shutdown()
			return nil
		},
	})
}
