// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package logging configures structured logging for the attendance service.
package logging

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	slogotel "github.com/remychantenay/slog-otel"
)

type ctxKey string

// Public constants
const (
	ErrKey = "error"
)

// Private constants
const (
	slogFields      ctxKey = "slog_fields"
	logLevelDefault        = slog.LevelDebug

	// Log field value for errors that need someone to act on them,
	// such as skipped days and failed installation runs.
	priorityCritical = "critical"
)

type contextHandler struct {
	slog.Handler
}

// Handle adds contextual attributes to the Record before calling the underlying handler
func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs keeps the context handler on top of derived handlers.
func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

// WithGroup keeps the context handler on top of derived handlers.
func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// AppendCtx adds an slog attribute to the provided context so that it will be
// included in any Record created with such context
func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	existing, _ := parent.Value(slogFields).([]slog.Attr)
	// Copy so sibling contexts never share a backing array.
	v := make([]slog.Attr, 0, len(existing)+1)
	v = append(v, existing...)
	v = append(v, attr)
	return context.WithValue(parent, slogFields, v)
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values give the default.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return logLevelDefault
}

// NewHandler builds the JSON handler stack: trace and span ids from the
// record context, then attributes added with AppendCtx.
func NewHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	json := slog.NewJSONHandler(w, opts)
	return contextHandler{slogotel.OtelHandler{Next: json}}
}

// InitStructureLogConfig sets the structured log behavior from LOG_LEVEL and LOG_ADD_SOURCE
func InitStructureLogConfig() slog.Handler {
	addSource := os.Getenv("LOG_ADD_SOURCE")
	logOptions := &slog.HandlerOptions{
		Level:     ParseLevel(os.Getenv("LOG_LEVEL")),
		AddSource: addSource == "true" || addSource == "t" || addSource == "1",
	}

	h := NewHandler(os.Stdout, logOptions)
	log.SetFlags(log.Llongfile)
	slog.SetDefault(slog.New(h))

	slog.Info("log config",
		"logLevel", logOptions.Level,
		"addSource", logOptions.AddSource,
	)

	return h
}

// Priority creates a slog.Attr for error priority classification
func Priority(level string) slog.Attr {
	return slog.String("priority", level)
}

// PriorityCritical marks a log line as one the team should be alerted about.
func PriorityCritical() slog.Attr {
	return Priority(priorityCritical)
}
