package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

// Log is the process-wide logger. It discards everything until Init is called,
// so packages can log from tests without setup.
var Log = zap.NewNop()

type options struct {
	output string
}

type Option func(*options)

// ToStderr sends all records to stderr, for commands whose stdout carries data.
func ToStderr() Option {
	return func(o *options) { o.output = "stderr" }
}

func Init(level string, development bool, opts ...Option) error {
	o := options{output: "stdout"}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{o.output}
	cfg.ErrorOutputPaths = []string{"stderr"}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = built
	return nil
}

// WithRequestID stores a request id for WithContext to pick up.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

func WithContext(ctx context.Context) *zap.Logger {
	if id, _ := ctx.Value(ctxKey{}).(string); id != "" {
		return Log.With(zap.String("request_id", id))
	}
	return Log
}

// Named returns a child logger tagged with the component name.
func Named(component string) *zap.Logger {
	return Log.Named(component)
}

func Close() {
	_ = Log.Sync()
}

// Fatal logs and exits even if the logger was replaced by one without a fatal hook.
func Fatal(msg string, fields ...zap.Field) {
	Log.Fatal(msg, fields...)
	os.Exit(1)
}

func Error(msg string, fields ...zap.Field) { Log.Error(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { Log.Warn(msg, fields...) }

func Info(msg string, fields ...zap.Field) { Log.Info(msg, fields...) }

func Debug(msg string, fields ...zap.Field) { Log.Debug(msg, fields...) }
