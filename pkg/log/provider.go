package log

import (
	"io"
	"os"
	"sync"
)

// ZerologProvider hands out named zerolog loggers sharing one level.
type ZerologProvider struct {
	root *ZerologLogger
}

// NewZerologProvider creates a provider writing JSON lines to w.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	return &ZerologProvider{root: NewZerologLogger(w, level)}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	return p.root
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return p.root.With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.root.SetLevel(level)
}

var (
	providerMu     sync.RWMutex
	globalProvider LoggerProvider = NewZerologProvider(os.Stderr, LevelWarn)
)

// SetProvider replaces the process-wide provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	globalProvider = p
}

// Provider returns the process-wide provider.
func Provider() LoggerProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return globalProvider
}

// GetLogger returns the default logger of the global provider.
func GetLogger() Logger {
	return Provider().GetLogger()
}

// GetLoggerWithName returns a component logger from the global provider.
func GetLoggerWithName(name string) Logger {
	return Provider().GetLoggerWithName(name)
}
