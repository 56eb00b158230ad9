package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger passed through the service. Fields are
// zap fields so call sites stay allocation free at disabled levels.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)

	// With returns a child logger carrying fields on every entry.
	With(fields ...zap.Field) Logger
	// Named appends name to the logger name, e.g. "http" or "pipeline".
	Named(name string) Logger

	Zap() *zap.Logger
	Sync() error
}

type zapLogger struct {
	zl *zap.Logger
}

// NewLogger builds a Logger from config. It fails only when the log file
// cannot be prepared.
func NewLogger(config Config) (Logger, error) {
	config.applyDefaults()

	ws, err := getWriteSyncer(config)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(GetEncoder(config), ws, zap.NewAtomicLevelAt(config.ZapLevel()))

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if config.ShowCaller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	return FromZap(zap.New(core, opts...)), nil
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return FromZap(zap.NewNop())
}

// FromZap wraps zl.
func FromZap(zl *zap.Logger) Logger {
	return &zapLogger{zl: zl}
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.zl.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.zl.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.zl.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...zap.Field) { l.zl.Error(msg, fields...) }

func (l *zapLogger) With(fields ...zap.Field) Logger {
	return FromZap(l.zl.With(fields...))
}

func (l *zapLogger) Named(name string) Logger {
	return FromZap(l.zl.Named(name))
}

func (l *zapLogger) Zap() *zap.Logger { return l.zl }

func (l *zapLogger) Sync() error { return l.zl.Sync() }

var _ Logger = (*zapLogger)(nil)
