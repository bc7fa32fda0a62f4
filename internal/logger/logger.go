// Package logger wraps a process-wide logrus logger.  Every entry
// carries the correlation id stored in the context, so a single request
// can be followed across the handler, service and queue layers.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
)

// CorrelationID is the log field holding the request correlation id.
const CorrelationID = "correlation_id"

type ctxKey struct{}

var (
	logger  = logrus.New()
	newline = regexp.MustCompile(`(\r\n)|(\n)`)
)

func init() {
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
}

// Configure sets the level ("debug", "info", ...) and output format
// ("json" or "text").  Unknown levels fall back to info.
func Configure(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) { logger.SetOutput(w) }

// WithCorrelationID returns a context carrying id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// CorrelationIDFrom returns the id stored in ctx, or "".
func CorrelationIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// Entry returns a logrus entry tagged with the context's correlation id.
func Entry(ctx context.Context) *logrus.Entry {
	return logger.WithField(CorrelationID, CorrelationIDFrom(ctx))
}

func Debugf(ctx context.Context, format string, args ...interface{}) {
	Entry(ctx).Debug(escape(format, args...))
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	Entry(ctx).Infof(format, args...)
}

func Warnf(ctx context.Context, format string, args ...interface{}) {
	Entry(ctx).Warnf(format, args...)
}

// Errorf logs on a single line; embedded newlines are escaped.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	Entry(ctx).Error(escape(format, args...))
}

func Fatalf(ctx context.Context, format string, args ...interface{}) {
	Entry(ctx).Fatalf(format, args...)
}

// LogExecutionTime logs how long has passed since start.  Use with defer.
func LogExecutionTime(ctx context.Context, start time.Time, what string) {
	Entry(ctx).WithField("duration_ms", time.Since(start).Milliseconds()).Infof("%s took %s", what, time.Since(start))
}

func escape(format string, args ...interface{}) string {
	return newline.ReplaceAllString(fmt.Sprintf(format, args...), "\\n ")
}
