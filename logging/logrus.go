package logging

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// LogrusLogger backs the Logger interface with a logrus entry
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates a logrus-backed logger writing to out.
// With json set, records are emitted as JSON lines; otherwise as text.
func NewLogrusLogger(out io.Writer, level Level, json bool) *LogrusLogger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(toLogrusLevel(level))
	if json {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			DisableColors:    true,
			FullTimestamp:    true,
			DisableSorting:   false,
			QuoteEmptyFields: true,
		})
	}

	return &LogrusLogger{entry: logrus.NewEntry(base)}
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

func (l *LogrusLogger) with(fields []Fields) *logrus.Entry {
	entry := l.entry
	for _, f := range fields {
		if len(f) > 0 {
			entry = entry.WithFields(logrus.Fields(f))
		}
	}
	return entry
}

func (l *LogrusLogger) Debug(msg string, fields ...Fields) {
	l.with(fields).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, fields ...Fields) {
	l.with(fields).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, fields ...Fields) {
	l.with(fields).Warn(msg)
}

func (l *LogrusLogger) Error(err error, msg string, fields ...Fields) {
	entry := l.with(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func (l *LogrusLogger) Fatal(err error, msg string, fields ...Fields) {
	entry := l.with(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Fatal(msg)
}

func (l *LogrusLogger) WithFields(fields Fields) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	entry := l.entry.WithContext(ctx)
	if fields, ok := FieldsFromContext(ctx); ok {
		entry = entry.WithFields(logrus.Fields(fields))
	}
	return &LogrusLogger{entry: entry}
}

// SetLevel changes the level of the underlying logrus logger, shared by all derived loggers
func (l *LogrusLogger) SetLevel(level Level) {
	l.entry.Logger.SetLevel(toLogrusLevel(level))
}
