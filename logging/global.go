package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	globalLogger Logger
	globalMu     sync.RWMutex
)

// Global returns the global logger. Until SetGlobal is called it is a
// development logger writing to stderr.
func Global() Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		zl, err := zap.NewDevelopment()
		if err != nil {
			zl = zap.NewNop()
		}
		globalLogger = FromZap(zl)
	}
	return globalLogger
}

// SetGlobal replaces the global logger and redirects zap's own globals to it.
func SetGlobal(logger Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
	zap.ReplaceGlobals(logger.Zap())
}

// Init builds a logger from config and installs it as the global logger.
func Init(config Config) (Logger, error) {
	l, err := NewLogger(config)
	if err != nil {
		return nil, err
	}
	SetGlobal(l)
	return l, nil
}
