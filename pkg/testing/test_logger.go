package testing

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/EternisAI/persona-blend/pkg/logging"
)

// TestLoggerFactory provides a test-scoped logger factory for testing purposes.
var TestLoggerFactory = func() *logging.Factory {
	baseLogger := log.NewWithOptions(io.Discard, log.Options{Level: log.DebugLevel})
	return logging.NewFactory(baseLogger)
}()

// GetTestLogger returns a test logger for a specific component.
// Debug level so debug-only branches are exercised, output is discarded.
func GetTestLogger(componentID string) *log.Logger {
	return TestLoggerFactory.ForComponent(componentID)
}
