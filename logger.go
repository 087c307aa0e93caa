package auth

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger used across the package.
// args are alternating key value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider hands out named loggers
type LoggerProvider interface {
	GetLogger(name string) Logger
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{s: l.Sugar()}
}

func (z *zapLogger) Debug(msg string, args ...any) { z.s.Debugw(msg, args...) }
func (z *zapLogger) Info(msg string, args ...any)  { z.s.Infow(msg, args...) }
func (z *zapLogger) Warn(msg string, args ...any)  { z.s.Warnw(msg, args...) }
func (z *zapLogger) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }

// Zap returns the underlying zap logger
func (z *zapLogger) Zap() *zap.Logger { return z.s.Desugar() }

type zapProvider struct {
	base *zap.Logger
}

// NewZapLoggerProvider returns a provider that names loggers from base
func NewZapLoggerProvider(base *zap.Logger) LoggerProvider {
	if base == nil {
		base = zap.NewNop()
	}
	return zapProvider{base: base}
}

func (p zapProvider) GetLogger(name string) Logger {
	return NewZapLogger(p.base.Named(name))
}

// NewLogger builds a zap logger for the given level and format (json|console)
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, err
		}
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func defaultLogger() Logger {
	return NewZapLogger(zap.NewNop())
}

// ResolveLogger picks the logger for name: explicit logger first, then
// the provider, then a no-op logger.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if logger == nil && provider != nil {
		logger = provider.GetLogger(name)
	}
	if logger == nil {
		logger = defaultLogger()
	}
	if provider == nil {
		provider = staticProvider{logger: logger}
	}
	return provider, logger
}

type staticProvider struct {
	logger Logger
}

func (s staticProvider) GetLogger(string) Logger { return s.logger }
