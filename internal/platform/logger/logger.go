// Package logger provides structured logging backed by zap.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	Level      string `mapstructure:"level" envconfig:"LOG_LEVEL"`
	Format     string `mapstructure:"format" envconfig:"LOG_FORMAT"`
	OutputPath string `mapstructure:"output_path" envconfig:"LOG_OUTPUT"`
}

// Logger is the structured logging interface used across the project. The
// execution engine itself never logs; collaborators do.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	WithFields(fields map[string]any) Logger
}

// ZapLogger wraps zap.SugaredLogger.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// New creates a logger from config.
func New(cfg Config) Logger {
	var zapConfig zap.Config
	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	switch cfg.Level {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if cfg.OutputPath == "" || cfg.OutputPath == "stdout" {
		zapConfig.OutputPaths = []string{"stdout"}
	} else {
		zapConfig.OutputPaths = []string{cfg.OutputPath}
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		panic(err)
	}
	return &ZapLogger{logger: logger.Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &ZapLogger{logger: zap.NewNop().Sugar()}
}

// Debug logs a debug message with key/value pairs.
func (l *ZapLogger) Debug(msg string, fields ...any) {
	l.logger.Debugw(msg, fields...)
}

// Info logs an info message with key/value pairs.
func (l *ZapLogger) Info(msg string, fields ...any) {
	l.logger.Infow(msg, fields...)
}

// Warn logs a warning with key/value pairs.
func (l *ZapLogger) Warn(msg string, fields ...any) {
	l.logger.Warnw(msg, fields...)
}

// Error logs an error with key/value pairs.
func (l *ZapLogger) Error(msg string, fields ...any) {
	l.logger.Errorw(msg, fields...)
}

// WithFields returns a logger with the fields attached to every entry.
func (l *ZapLogger) WithFields(fields map[string]any) Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &ZapLogger{logger: l.logger.With(args...)}
}
