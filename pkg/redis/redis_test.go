package redis

import (
	"testing"
	"time"

	"smallbiznis-trustescrow/pkg/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	attempts, backoff := pingAttempts, pingBackoff
	pingAttempts, pingBackoff = 2, time.Millisecond
	t.Cleanup(func() { pingAttempts, pingBackoff = attempts, backoff })

	cfg := config.Default()
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.PoolTimeout = 100 * time.Millisecond

	rdb, err := New(fxtest.NewLifecycle(t), cfg)
	require.Error(t, err)
	require.ErrorContains(t, err, "unreachable after 2 attempts")
	require.Nil(t, rdb)
}
