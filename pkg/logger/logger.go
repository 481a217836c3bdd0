package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *zap.Logger
	initErr      error
	once         sync.Once
)

// setup builds the logger on the first call only. Every read of globalLogger
// goes through it so the once provides the happens-before edge.
func setup(level string) {
	once.Do(func() {
		globalLogger, initErr = New(level)
	})
}

// Init builds the process-wide logger. Later calls are no-ops.
func Init(level string) error {
	setup(level)
	return initErr
}

// Get returns the global logger, initialising it from LOG_LEVEL on first use.
func Get() *zap.Logger {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	setup(level)
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// Named returns a child of the global logger tagged with a component name.
func Named(component string) *zap.Logger {
	return Get().With(zap.String("component", component))
}

// Sync flushes any buffered log entries
func Sync() {
	_ = Get().Sync()
}

// New builds a JSON production logger at the given level. Unknown levels fall back to info.
func New(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.MessageKey = "message"

	return cfg.Build()
}
