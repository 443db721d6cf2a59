// Package logger provides structured logging for the vulx services
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

type ctxKey string

const (
	RequestIDKey      ctxKey = "request_id"
	OrganizationIDKey ctxKey = "organization_id"
)

// NewLogger creates a new structured logger
func NewLogger(level logrus.Level) *Logger {
	logger := logrus.New()

	logger.SetLevel(level)

	// JSON in production, text for development
	if os.Getenv("ENV") == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	return &Logger{Logger: logger}
}

// NewNopLogger returns a logger that discards everything. Used in tests.
func NewNopLogger() *Logger {
	l := NewLogger(logrus.PanicLevel)
	l.SetOutput(io.Discard)
	return l
}

// ParseLevel converts a textual level, falling back to info.
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// WithContext adds context-specific fields to the logger
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithContext(ctx)

	if reqID := ctx.Value(RequestIDKey); reqID != nil {
		entry = entry.WithField("request_id", reqID)
	}

	if orgID := ctx.Value(OrganizationIDKey); orgID != nil {
		entry = entry.WithField("organization_id", orgID)
	}

	return entry
}

// WithScan adds scan-specific fields to the logger
func (l *Logger) WithScan(scanID, projectID string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"scan_id":    scanID,
		"project_id": projectID,
	})
}

// WithError adds error context to the logger
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields(fields))
}

// LogSweep logs the start and end of a scheduler sweep
func (l *Logger) LogSweep(name string, fn func() error) error {
	start := time.Now()

	l.WithFields(Fields{
		"sweep":  name,
		"action": "start",
	}).Debug("Sweep started")

	err := fn()
	duration := time.Since(start)

	fields := Fields{
		"sweep":    name,
		"action":   "complete",
		"duration": duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.WithFields(fields).Error("Sweep failed")
	} else {
		l.WithFields(fields).Info("Sweep completed")
	}

	return err
}
