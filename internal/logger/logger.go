package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

// Init initializes the process-wide logger. Call once from main before
// anything else logs.
func Init(debug bool) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Fall back to a no-op logger rather than crashing before startup.
		l = zap.NewNop()
	}
	log = l.Sugar()
}

func ensure() *zap.SugaredLogger {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return log
}

// Debug logs a formatted debug message.
func Debug(format string, v ...interface{}) {
	ensure().Debugf(format, v...)
}

// Info logs a formatted info message.
func Info(format string, v ...interface{}) {
	ensure().Infof(format, v...)
}

// Warn logs a formatted warning message.
func Warn(format string, v ...interface{}) {
	ensure().Warnf(format, v...)
}

// Error logs a formatted error message.
func Error(format string, v ...interface{}) {
	ensure().Errorf(format, v...)
}

// IsDebugEnabled reports whether debug logging is active.
func IsDebugEnabled() bool {
	return ensure().Desugar().Core().Enabled(zapcore.DebugLevel)
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	_ = ensure().Sync()
}
