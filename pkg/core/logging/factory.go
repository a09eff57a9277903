// ============================================================================
// Pascal - Klammerausdruck-Evaluator
// ============================================================================
//
// Package:     logging
// Description: Factory functions for creating service loggers
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	mdwlog "github.com/msto63/pascal/foundation/core/log"
)

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	// Service name, reported as the logger field
	ServiceName string

	// Log level (trace, debug, info, warn, error)
	Level string

	// Output format: json, text, console or logfmt (default: json)
	Format string

	// Optional log file; entries are appended in addition to Output
	File string

	// Primary output (default: os.Stderr)
	Output io.Writer

	// Additional outputs
	AdditionalOutputs []io.Writer

	// Include file:line of the call site
	EnableCaller bool
}

// DefaultLoggerConfig returns a default configuration
func DefaultLoggerConfig(serviceName string) LoggerConfig {
	return LoggerConfig{
		ServiceName: serviceName,
		Level:       "info",
		Format:      "json",
	}
}

// NewLogger creates a new Foundation logger. Unknown levels and formats fall
// back to info and json.
func NewLogger(cfg LoggerConfig) (*mdwlog.Logger, error) {
	level, err := mdwlog.ParseLevel(cfg.Level)
	if err != nil && cfg.Level != "" {
		level = mdwlog.LevelInfo
	}
	format, err := mdwlog.ParseFormat(cfg.Format)
	if err != nil {
		format = mdwlog.FormatJSON
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	writers := []io.Writer{output}
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
	}
	writers = append(writers, cfg.AdditionalOutputs...)
	if len(writers) > 1 {
		output = io.MultiWriter(writers...)
	}

	return mdwlog.NewWithConfig(mdwlog.Config{
		Level:        level,
		Format:       format,
		Output:       output,
		Name:         cfg.ServiceName,
		EnableCaller: cfg.EnableCaller,
	}), nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// NewSimpleLogger creates a logger with the default configuration
func NewSimpleLogger(serviceName string) *mdwlog.Logger {
	logger, _ := NewLogger(DefaultLoggerConfig(serviceName))
	return logger
}

// Logger wraps the Foundation logger with key/value logging methods
type Logger struct {
	*mdwlog.Logger
	name string
}

// New creates a logger with the default configuration
func New(name string) *Logger {
	return &Logger{
		Logger: NewSimpleLogger(name),
		name:   name,
	}
}

// Wrap adapts an existing Foundation logger
func Wrap(logger *mdwlog.Logger, name string) *Logger {
	return &Logger{Logger: logger, name: name}
}

// NewFromConfig creates a key/value logger from cfg
func NewFromConfig(cfg LoggerConfig) (*Logger, error) {
	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger, name: cfg.ServiceName}, nil
}

// Name returns the name the logger was created with
func (l *Logger) Name() string {
	return l.name
}

// WithLevel returns a new logger with the specified level
func (l *Logger) WithLevel(level Level) *Logger {
	return &Logger{
		Logger: l.Logger.WithLevel(level.foundation()),
		name:   l.name,
	}
}

// Named returns a child logger; its name is appended to the parent's
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger: l.Logger.WithName(name),
		name:   strings.TrimPrefix(l.name+"."+name, "."),
	}
}

// With returns a logger that adds the key/value pairs to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		Logger: l.Logger.WithFields(toFields(keysAndValues...)),
		name:   l.name,
	}
}

// Debug logs a debug message with key/value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug(msg, toFields(keysAndValues...))
}

// Info logs an info message with key/value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Info(msg, toFields(keysAndValues...))
}

// Warn logs a warning message with key/value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.Logger.Warn(msg, toFields(keysAndValues...))
}

// Error logs an error message with key/value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.Logger.Error(msg, toFields(keysAndValues...))
}

// toFields converts key-value pairs to mdwlog.Fields. Non-string keys and a
// trailing key without value are dropped.
func toFields(keysAndValues ...interface{}) mdwlog.Fields {
	if len(keysAndValues) == 0 {
		return nil
	}

	fields := make(mdwlog.Fields)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
