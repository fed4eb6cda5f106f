package logging

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Level is the minimum severity a Logger emits
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return "unknown"
	}
}

// ParseLevel converts a level name ("debug", "info", "warn", "error", "fatal") to a Level.
// An empty name means info.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %q", name)
	}
}

// Fields are structured key/value pairs attached to a record
type Fields map[string]any

// Keys shared by every analysis stage, so records of one clip can be joined
const (
	FieldComponent  = "component"
	FieldStage      = "stage"
	FieldSampleRate = "sample_rate"
	FieldSource     = "source"
	FieldFunction   = "function"
)

// Logger is what the analysis packages log through
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)
	Fatal(err error, msg string, fields ...Fields)

	WithFields(fields Fields) Logger

	// WithContext adds the fields attached with ContextWithFields
	WithContext(ctx context.Context) Logger

	SetLevel(level Level)
}

// ForStage scopes logger to one pipeline stage
func ForStage(logger Logger, stage string) Logger {
	return logger.WithFields(Fields{FieldStage: stage})
}

type contextKey struct{}

// ContextWithFields attaches fields that WithContext will pick up.
// Fields already on ctx are kept unless overwritten.
func ContextWithFields(ctx context.Context, fields Fields) context.Context {
	merged := make(Fields)
	if existing, ok := FieldsFromContext(ctx); ok {
		for k, v := range existing {
			merged[k] = v
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, contextKey{}, merged)
}

// FieldsFromContext returns the fields attached by ContextWithFields
func FieldsFromContext(ctx context.Context) (Fields, bool) {
	if ctx == nil {
		return nil, false
	}
	fields, ok := ctx.Value(contextKey{}).(Fields)
	return fields, ok
}

// Until the CLI installs its configured logger, records go to stderr as logrus text
var globalLogger Logger = NewLogrusLogger(os.Stderr, InfoLevel, false)

// SetGlobalLogger replaces the package logger; nil discards everything
func SetGlobalLogger(logger Logger) {
	if logger == nil {
		globalLogger = &NoOpLogger{}
		return
	}
	globalLogger = logger
}

// GetGlobalLogger returns the current package logger
func GetGlobalLogger() Logger {
	return globalLogger
}

// WithFields derives a logger from the package logger
func WithFields(fields Fields) Logger {
	return globalLogger.WithFields(fields)
}
