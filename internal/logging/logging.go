// Package logging provides structured logging for routectl, built on logrus.
// Error-level records are routed to stderr and everything else to stdout so
// container log collectors can treat the two streams differently.
package logging

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"routectl.dev/internal/correlation"
)

// outputSplitter routes formatted log lines to stderr or stdout based on
// level, without parsing the line beyond a literal match of the error level
// as the text ("level=error") and JSON ("level":"error") formatters write it.
type outputSplitter struct{}

func (outputSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte(`"level":"error"`)) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the process-wide logrus instance. Configure via Configure at
// startup; every ContextLogger built with New wraps this instance unless an
// explicit *logrus.Logger is supplied.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(outputSplitter{})
}

// Config controls logger construction.
type Config struct {
	Level     string // debug|info|warn|error
	Format    string // json|text
	Service   string
	Version   string
	AddCaller bool
}

// Configure applies Config to the package-level Logger.
func Configure(cfg Config) {
	switch cfg.Level {
	case "debug":
		Logger.SetLevel(logrus.DebugLevel)
	case "warn":
		Logger.SetLevel(logrus.WarnLevel)
	case "error":
		Logger.SetLevel(logrus.ErrorLevel)
	default:
		Logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Format == "json" {
		Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	}
	Logger.SetReportCaller(cfg.AddCaller)
}

// ContextLogger accumulates structured fields across a request or consumer
// invocation. Each With* call returns a new value; the receiver is untouched.
type ContextLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

// New builds a ContextLogger carrying the given base fields. A nil logger
// falls back to the package-level Logger.
func New(logger *logrus.Logger, fields map[string]interface{}) *ContextLogger {
	if logger == nil {
		logger = Logger
	}
	base := make(logrus.Fields, len(fields))
	for k, v := range fields {
		base[k] = v
	}
	return &ContextLogger{logger: logger, fields: base}
}

func (cl *ContextLogger) clone() logrus.Fields {
	next := make(logrus.Fields, len(cl.fields)+1)
	for k, v := range cl.fields {
		next[k] = v
	}
	return next
}

// WithField returns a derived logger with key set to value.
func (cl *ContextLogger) WithField(key string, value interface{}) *ContextLogger {
	f := cl.clone()
	f[key] = value
	return &ContextLogger{logger: cl.logger, fields: f}
}

// WithFields returns a derived logger with the given fields merged in.
func (cl *ContextLogger) WithFields(fields map[string]interface{}) *ContextLogger {
	f := cl.clone()
	for k, v := range fields {
		f[k] = v
	}
	return &ContextLogger{logger: cl.logger, fields: f}
}

// WithError attaches err.Error() under the "error" field.
func (cl *ContextLogger) WithError(err error) *ContextLogger {
	if err == nil {
		return cl
	}
	return cl.WithField("error", err.Error())
}

// WithCorrelationID attaches id under the "correlation_id" field.
func (cl *ContextLogger) WithCorrelationID(id string) *ContextLogger {
	if id == "" {
		return cl
	}
	return cl.WithField("correlation_id", id)
}

// WithRoute attaches the canonical route identifier string.
func (cl *ContextLogger) WithRoute(identifier string) *ContextLogger {
	return cl.WithField("route", identifier)
}

// WithContext extracts the correlation ID off ctx, if the caller bound one
// there, and attaches it under "correlation_id".
func (cl *ContextLogger) WithContext(ctx context.Context) *ContextLogger {
	if id := correlation.FromContext(ctx); id != "" {
		return cl.WithField("correlation_id", id)
	}
	return cl
}

func (cl *ContextLogger) Debug(msg string)                          { cl.logger.WithFields(cl.fields).Debug(msg) }
func (cl *ContextLogger) Debugf(format string, args ...interface{}) { cl.logger.WithFields(cl.fields).Debugf(format, args...) }
func (cl *ContextLogger) Info(msg string)                           { cl.logger.WithFields(cl.fields).Info(msg) }
func (cl *ContextLogger) Infof(format string, args ...interface{})  { cl.logger.WithFields(cl.fields).Infof(format, args...) }
func (cl *ContextLogger) Warn(msg string)                           { cl.logger.WithFields(cl.fields).Warn(msg) }
func (cl *ContextLogger) Warnf(format string, args ...interface{})  { cl.logger.WithFields(cl.fields).Warnf(format, args...) }
func (cl *ContextLogger) Error(msg string)                          { cl.logger.WithFields(cl.fields).Error(msg) }
func (cl *ContextLogger) Errorf(format string, args ...interface{}) { cl.logger.WithFields(cl.fields).Errorf(format, args...) }

// ServiceLogger builds a ContextLogger pre-populated with service identity.
func ServiceLogger(service, version string) *ContextLogger {
	return New(Logger, map[string]interface{}{"service": service, "version": version})
}

// LogOperation times fn, logging success/failure with a duration field. The
// resolver, mutator, and consumers do not call it; they log directly.
func LogOperation(logger *ContextLogger, operation string, fn func() error) error {
	start := time.Now()
	entry := logger.WithField("operation", operation)
	err := fn()
	entry = entry.WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		entry.WithError(err).Error("operation failed")
		return err
	}
	entry.Info("operation completed")
	return nil
}

// LogPanic recovers a panic, if any, and logs it with a stack trace. Callers
// defer this at the top of a goroutine that must not crash the process
// (consumer workers, background drainers).
func LogPanic(logger *ContextLogger) {
	if r := recover(); r != nil {
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		logger.WithFields(map[string]interface{}{
			"panic":      fmt.Sprintf("%v", r),
			"stacktrace": string(buf[:n]),
		}).Error("panic recovered")
	}
}
