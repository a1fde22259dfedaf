// Package logging defines the structured-logging interface used across the
// project together with slog and logrus backed implementations.
package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/sirupsen/logrus"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "contract transitioned", "contract_id", id, "status", status)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Supported output formats for New.
const (
	FormatJSON   = "json"
	FormatText   = "text"
	FormatLogrus = "logrus"
)

// New builds a Logger writing to w in the requested format. Unknown formats
// fall back to slog JSON.
func New(format string, w io.Writer) Logger {
	switch format {
	case FormatText:
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, nil)))
	case FormatLogrus:
		l := logrus.New()
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetOutput(w)
		l.SetLevel(logrus.InfoLevel)
		return NewLogrusLogger(l)
	default:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(w, nil)))
	}
}

type nopLogger struct{}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) Logger                  { return n }
