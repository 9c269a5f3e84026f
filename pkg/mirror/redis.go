package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStream appends records to a capped redis stream read by the on-chain
// relayer.
type RedisStream struct {
	rdb    redis.Cmdable
	stream string
	maxLen int64
}

func NewRedisStream(rdb redis.Cmdable, stream string, maxLen int64) *RedisStream {
	return &RedisStream{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (r *RedisStream) MirrorEscrow(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"transaction_id": rec.TransactionID,
			"status":         rec.Status,
			"payload":        payload,
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("mirror %s to %s: %w", rec.TransactionID, r.stream, err)
	}
	return nil
}
