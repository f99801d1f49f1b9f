// Package logx provides the process-wide leveled logger. It wraps a zap
// sugared logger so call sites stay printf-shaped.
package logx

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

var (
	atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar       = newLogger().Sugar()
)

func newLogger() *zap.Logger {
	cfg := zap.Config{
		Encoding:         "console",
		Level:            atomicLevel,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:   "msg",
			LevelKey:     "level",
			EncodeLevel:  zapcore.CapitalLevelEncoder,
			TimeKey:      "time",
			EncodeTime:   zapcore.RFC3339TimeEncoder,
			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

// SetLevel adjusts the global logging level at runtime.
func SetLevel(l Level) { atomicLevel.SetLevel(l) }

func Debug(args ...any) { sugar.Debug(args...) }

func Debugf(template string, args ...any) { sugar.Debugf(template, args...) }

func Info(args ...any) { sugar.Info(args...) }

func Infof(template string, args ...any) { sugar.Infof(template, args...) }

func Warn(args ...any) { sugar.Warn(args...) }

func Warnf(template string, args ...any) { sugar.Warnf(template, args...) }

func Error(args ...any) { sugar.Error(args...) }

func Errorf(template string, args ...any) { sugar.Errorf(template, args...) }

func Fatalf(template string, args ...any) { sugar.Fatalf(template, args...) }
