package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// NewLogger builds the process-wide base logger.
func NewLogger(level log.Level) *log.Logger {
	logger := log.NewWithOptions(os.Stdout, log.Options{
		ReportTimestamp: true,
		Level:           level,
		TimeFormat:      time.Kitchen,
	})

	logger.SetColorProfile(lipgloss.ColorProfile())

	return logger
}

// Discard returns a logger that drops everything. Used when a caller passes a nil logger.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// OrDiscard returns logger, or a discard logger when logger is nil.
func OrDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// Factory provides component-aware loggers with consistent field naming.
type Factory struct {
	baseLogger        *log.Logger
	componentRegistry *ComponentRegistry
}

// NewFactory creates a new logger factory.
func NewFactory(baseLogger *log.Logger) *Factory {
	return &Factory{
		baseLogger:        OrDiscard(baseLogger),
		componentRegistry: NewComponentRegistry(),
	}
}

// NewFactoryWithConfig creates a new logger factory and loads component log levels from config.
func NewFactoryWithConfig(baseLogger *log.Logger, componentLogLevels map[string]string) *Factory {
	f := NewFactory(baseLogger)
	f.componentRegistry.LoadLogLevels(componentLogLevels)
	return f
}

// ForComponent creates a logger for a specific component.
func (lf *Factory) ForComponent(id string) *log.Logger {
	lf.componentRegistry.Register(id, ComponentTypeUtility)
	return lf.componentRegistry.LoggerFor(lf.baseLogger, id)
}

// ForSession creates a logger for blend sessions and the session manager.
func (lf *Factory) ForSession(id string) *log.Logger {
	lf.componentRegistry.Register(id, ComponentTypeSession)
	return lf.componentRegistry.LoggerFor(lf.baseLogger, id)
}

// ForLexicon creates a logger for lexicon classifiers.
func (lf *Factory) ForLexicon(id string) *log.Logger {
	lf.componentRegistry.Register(id, ComponentTypeLexicon)
	return lf.componentRegistry.LoggerFor(lf.baseLogger, id)
}

// ForRepository creates a logger for seed repositories.
func (lf *Factory) ForRepository(id string) *log.Logger {
	lf.componentRegistry.Register(id, ComponentTypeRepository)
	return lf.componentRegistry.LoggerFor(lf.baseLogger, id)
}

// ForEngine creates a logger for the activation engine.
func (lf *Factory) ForEngine(id string) *log.Logger {
	lf.componentRegistry.Register(id, ComponentTypeEngine)
	return lf.componentRegistry.LoggerFor(lf.baseLogger, id)
}

// ForNATS creates a logger for event publishing.
func (lf *Factory) ForNATS(id string) *log.Logger {
	lf.componentRegistry.Register(id, ComponentTypeNATS)
	return lf.componentRegistry.LoggerFor(lf.baseLogger, id)
}

// WithOperation adds operation context to a logger.
func (lf *Factory) WithOperation(logger *log.Logger, operation string) *log.Logger {
	return logger.With("operation", operation)
}

// WithError adds error context to a logger.
func (lf *Factory) WithError(logger *log.Logger, err error) *log.Logger {
	if err != nil {
		return logger.With("error", err.Error())
	}
	return logger
}

// SetComponentLogLevel sets the logging level for a specific component.
func (lf *Factory) SetComponentLogLevel(id string, level log.Level) {
	lf.componentRegistry.SetLevel(id, level)
}

// GetComponentLogLevel gets the logging level for a specific component.
func (lf *Factory) GetComponentLogLevel(id string) log.Level {
	return lf.componentRegistry.Level(id, lf.baseLogger.GetLevel())
}

// ListComponentsByType returns the ids of all components of a specific type.
func (lf *Factory) ListComponentsByType(componentType ComponentType) []string {
	return lf.componentRegistry.ListByType(componentType)
}
