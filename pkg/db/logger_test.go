package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm/logger"
)

func observed(level logger.LogLevel, showSQL bool) (*ZapGormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewZapGormLogger(zap.New(core), level, showSQL), logs
}

func query() (string, int64) { return "SELECT * FROM escrow_transactions", 1 }

func TestTraceSkipsRecordNotFound(t *testing.T) {
	l, logs := observed(logger.Info, false)
	l.Trace(context.Background(), time.Now(), query, logger.ErrRecordNotFound)
	require.Zero(t, logs.Len())
}

func TestTraceLogsErrors(t *testing.T) {
	l, logs := observed(logger.Warn, false)
	l.Trace(context.Background(), time.Now(), query, errors.New("deadlock detected"))
	require.Equal(t, 1, logs.FilterMessage("gorm.query").Len())
}

func TestTraceLogsSlowQueries(t *testing.T) {
	l, logs := observed(logger.Warn, false)
	l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	require.Equal(t, 1, logs.FilterMessage("gorm.slow_query").Len())
}

func TestTraceSilent(t *testing.T) {
	l, logs := observed(logger.Info, true)
	l.LogMode(logger.Silent).Trace(context.Background(), time.Now(), query, errors.New("boom"))
	require.Zero(t, logs.Len())

	l.Trace(context.Background(), time.Now(), query, nil)
	require.Equal(t, 1, logs.Len())
}
