package logger

import (
	"os"

	"smallbiznis-trustescrow/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Module = fx.Module("zap",
	fx.Provide(
		New,
	),
)

type ConfigParams struct {
	fx.In
	Cfg *config.Config
}

func New(p ConfigParams) *zap.Logger {
	log := zap.Must(zap.NewDevelopment())
	if p.Cfg != nil && p.Cfg.AppEnv == "production" {
		log = zap.New(productionCore(p.Cfg), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	if p.Cfg != nil {
		log = log.With(
			zap.String("env", p.Cfg.AppEnv),
			zap.String("service_name", p.Cfg.AppName),
			zap.String("policy_version", p.Cfg.Policy.Version),
		)
	}

	zap.ReplaceGlobals(log)

	return log
}

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.StacktraceKey = "stacktrace"
	ec.LevelKey = "severity"
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	ec.CallerKey = "caller"
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	return ec
}

// productionCore writes JSON to stdout and, when LOG.FILE is set, to a
// rotated file as well.
func productionCore(cfg *config.Config) zapcore.Core {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.Log.Level != "" {
		if lvl, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
			level.SetLevel(lvl)
		}
	}

	enc := zapcore.NewJSONEncoder(encoderConfig())
	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	if cfg.Log.File != "" {
		sinks = append(sinks, zapcore.AddSync(RotatingWriter(cfg)))
	}

	return zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), level)
}

func RotatingWriter(cfg *config.Config) *lumberjack.Logger {
	maxSize := cfg.Log.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	return &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    maxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   true,
	}
}
