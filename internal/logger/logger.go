// Package logger holds the process-wide hclog logger and the package-level
// helpers used by HTTP handlers and startup code.
package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

var (
	root hclog.Logger = hclog.New(&hclog.LoggerOptions{
		Name:   "abrstream",
		Level:  hclog.Info,
		Output: os.Stderr,
	})
	mu sync.RWMutex
)

// Init builds the root logger from the configured level and format and
// installs it as the package default.
func Init(level, format string) hclog.Logger {
	l := hclog.New(&hclog.LoggerOptions{
		Name:            "abrstream",
		Level:           hclog.LevelFromString(strings.TrimSpace(level)),
		JSONFormat:      strings.EqualFold(strings.TrimSpace(format), "json"),
		Output:          os.Stderr,
		IncludeLocation: false,
	})

	mu.Lock()
	root = l
	mu.Unlock()
	return l
}

// Get returns the root logger
func Get() hclog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Named returns a child of the root logger
func Named(name string) hclog.Logger {
	return Get().Named(name)
}

// Info logs informational messages
func Info(msg string, args ...interface{}) {
	Get().Info(msg, args...)
}

// Warn logs warning messages
func Warn(msg string, args ...interface{}) {
	Get().Warn(msg, args...)
}

// Error logs error messages
func Error(msg string, args ...interface{}) {
	Get().Error(msg, args...)
}

// Debug logs debug messages
func Debug(msg string, args ...interface{}) {
	Get().Debug(msg, args...)
}
