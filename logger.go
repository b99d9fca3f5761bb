package cstruct

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package logger used by registries created without
// WithLogger. It is a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the package logger.
// Registries created afterwards use it.
func SetLogger(l *zap.Logger) {
	logger = l
}
