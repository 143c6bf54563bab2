package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// Field keys shared by log lines of one discovery request.
const (
	KeySearchID = "search_id"
	KeyTemplate = "template"
	KeyCore     = "core"
)

// SearchID tags log lines of one indexed search.
func SearchID(id string) zap.Field { return zap.String(KeySearchID, id) }

// Template tags log lines with a naming template id.
func Template(id string) zap.Field { return zap.String(KeyTemplate, id) }

// Core tags log lines with an index core.
func Core(name string) zap.Field { return zap.String(KeyCore, name) }

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// With adds fields to the context logger. Layers below see them on every line.
func With(ctx context.Context, fields ...zap.Field) (context.Context, *zap.Logger) {
	l := FromContext(ctx).With(fields...)
	return ContextWithLogger(ctx, l), l
}
